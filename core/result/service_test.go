package result_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/result"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
	"github.com/trezcool/darasa/storage/docrepo"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

const centerID = "c1"

func setup(t *testing.T) *result.Service {
	ctx := context.Background()
	store := inmemstore.New()

	studRepo := docrepo.NewStudentRepository(store)
	require.NoError(t, studRepo.CreateMany(ctx, []student.Student{
		{ID: "s1", CenterID: centerID, Name: "Ann", Batch: "A", IsActive: true},
		{ID: "s2", CenterID: centerID, Name: "Ben", Batch: "A", IsActive: true},
	}))
	subjRepo := docrepo.NewSubjectRepository(store)
	_, err := subjRepo.Create(ctx, subject.Subject{ID: "math", CenterID: centerID, Name: "Maths", Code: "math"})
	require.NoError(t, err)

	return result.NewService(
		docrepo.NewResultRepository(store),
		student.NewService(studRepo, nil),
		subject.NewService(subjRepo),
		core.NewTestConfig(),
	)
}

func TestService_RecordBulk(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	results, err := svc.RecordBulk(ctx, centerID, result.BulkResults{
		SubjectID: "math",
		TestName:  "Unit 1",
		TestDate:  &date,
		MaxMarks:  50,
		Entries: []result.BulkEntry{
			{StudentID: "s1", MarksObtained: 45},
			{StudentID: "s2", MarksObtained: 15},
		},
	}, "u1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Ann", results[0].StudentName)
	assert.Equal(t, "A", results[0].Batch)

	stats, err := svc.TestStats(ctx, centerID, "math", "Unit 1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 60.0, stats.Average)
	assert.Equal(t, 1, stats.Passed)

	report, err := svc.StudentReport(ctx, centerID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, report.Overall)
	assert.Equal(t, "A+", report.Grade)

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.RecordBulk(ctx, centerID, result.BulkResults{
			SubjectID: "math", TestName: "Unit 2", MaxMarks: 10,
			Entries: []result.BulkEntry{{StudentID: "s1", MarksObtained: 5}, {StudentID: "nope", MarksObtained: 5}},
		}, "u1")
		assert.True(t, core.IsNotFound(err))

		results, err := svc.Query(ctx, centerID, &result.QueryFilter{TestName: "Unit 2"}, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("unknown subject", func(t *testing.T) {
		_, err := svc.Record(ctx, centerID, result.NewResult{StudentID: "s1", SubjectID: "nope", TestName: "x", MaxMarks: 10}, "u1")
		assert.Equal(t, subject.ErrNotFound, err)
	})
}
