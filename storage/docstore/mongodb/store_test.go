package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/darasa/core"
)

func TestToBSONFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter core.Filter
		want   bson.M
	}{
		{name: "empty", want: bson.M{}},
		{name: "equality", filter: core.Filter{"center_id": "c1", "is_active": true}, want: bson.M{"center_id": "c1", "is_active": true}},
		{name: "in", filter: core.Filter{"batch": []string{"A", "B"}}, want: bson.M{"batch": bson.M{"$in": []string{"A", "B"}}}},
		{name: "id", filter: core.Filter{"id": []string{"1"}}, want: bson.M{"_id": bson.M{"$in": []string{"1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToBSONFilter(tt.filter))
		})
	}
}

func TestToBSON(t *testing.T) {
	type fee struct {
		ID      string    `bson:"id"`
		Amount  float64   `bson:"amount"`
		DueDate time.Time `bson:"due_date"`
	}
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	m, err := toBSON("f1", fee{ID: "f1", Amount: 12.5, DueDate: due})
	require.NoError(t, err)
	assert.Equal(t, "f1", m["_id"])
	assert.Equal(t, "f1", m["id"])
	assert.Equal(t, 12.5, m["amount"])
	assert.NotNil(t, m["due_date"])
}

func TestToWriteModel(t *testing.T) {
	ins, err := toWriteModel(core.WriteOp{Kind: core.OpInsert, ID: "1", Doc: bson.M{"id": "1"}})
	require.NoError(t, err)
	assert.IsType(t, &mongo.InsertOneModel{}, ins)

	upd, err := toWriteModel(core.WriteOp{Kind: core.OpUpdate, ID: "1", Fields: map[string]interface{}{"a": 1}})
	require.NoError(t, err)
	assert.IsType(t, &mongo.UpdateOneModel{}, upd)

	del, err := toWriteModel(core.WriteOp{Kind: core.OpDelete, ID: "1"})
	require.NoError(t, err)
	assert.IsType(t, &mongo.DeleteOneModel{}, del)

	_, err = toWriteModel(core.WriteOp{Kind: 42})
	assert.Error(t, err)
}
