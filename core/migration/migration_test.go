package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestNormalizePeriod(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024-03", "2024-03"},
		{"03-2024", "2024-03"},
		{"3-2024", "2024-03"},
		{"2024/3", "2024-03"},
		{" 2024/11 ", "2024-11"},
		{"March 2024", "March 2024"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePeriod(tt.in), "NormalizePeriod(%q)", tt.in)
	}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	store := inmemstore.New()

	seed := []struct {
		coll string
		doc  map[string]interface{}
	}{
		{core.CollStudentFees, map[string]interface{}{"id": "f1", "period": "03-2024", "amount": 100, "paid_amount": 0}},
		{core.CollStudentFees, map[string]interface{}{"id": "f2", "period": "2024/4", "amount": 100, "paid_amount": 40}},
		{core.CollStudentFees, map[string]interface{}{"id": "f3", "period": "2024-05", "amount": 100, "paid_amount": 100, "status": "paid"}},
		{core.CollStudents, map[string]interface{}{"id": "s1", "batch": " A "}},
		{core.CollEnrollments, map[string]interface{}{"id": "e1", "batch": "A "}},
		{core.CollEnrollments, map[string]interface{}{"id": "e2", "batch": "B"}},
	}
	for _, s := range seed {
		require.NoError(t, store.Insert(ctx, s.coll, s.doc["id"].(string), s.doc))
	}

	runner := NewRunner(store, nopLogger{})
	pending, err := runner.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, len(All))

	records, err := runner.Run(ctx)
	require.NoError(t, err)
	if assert.Len(t, records, 3) {
		assert.Equal(t, 2, records[0].Affected) // f1 & f2
		assert.Equal(t, 2, records[1].Affected)
		assert.Equal(t, 2, records[2].Affected) // s1 & e1
	}

	var fees []map[string]interface{}
	require.NoError(t, store.Find(ctx, core.CollStudentFees, nil, &fees))
	assert.Equal(t, "pending", fees[0]["status"])
	assert.Equal(t, "2024-03", fees[0]["period"])
	assert.Equal(t, "partial", fees[1]["status"])
	assert.Equal(t, "2024-04", fees[1]["period"])
	assert.Equal(t, "paid", fees[2]["status"])

	var s map[string]interface{}
	require.NoError(t, store.Get(ctx, core.CollStudents, "s1", &s))
	assert.Equal(t, "A", s["batch"])

	t.Run("applied migrations are skipped", func(t *testing.T) {
		records, err := runner.Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestRunner_Run_StopsAtFailure(t *testing.T) {
	ctx := context.Background()
	store := inmemstore.New()
	errBoom := errors.New("boom")

	var ran []string
	ok := func(id string) Migration {
		return Migration{ID: id, Apply: func(context.Context, core.DocStore) (int, error) {
			ran = append(ran, id)
			return 0, nil
		}}
	}
	failing := Migration{ID: "2", Apply: func(context.Context, core.DocStore) (int, error) { return 0, errBoom }}

	runner := NewRunner(store, nopLogger{}, ok("1"), failing, ok("3"))
	records, err := runner.Run(ctx)
	assert.True(t, errors.Is(err, errBoom))
	assert.Len(t, records, 1)
	assert.Equal(t, []string{"1"}, ran)

	pending, err := runner.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
