package result

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/student"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"}, {90, "A+"}, {89.99, "A"}, {80, "A"}, {75, "B"}, {60, "C"}, {50, "D"}, {49.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.pct), "Grade(%v)", tt.pct)
	}
}

func TestTestResult_Percentage(t *testing.T) {
	assert.Equal(t, 75.0, TestResult{MaxMarks: 40, MarksObtained: 30}.Percentage())
	assert.Equal(t, 0.0, TestResult{MarksObtained: 30}.Percentage())
}

func TestNewResult_Validate(t *testing.T) {
	validate := newValidator()

	nr := NewResult{StudentID: " s1 ", SubjectID: "math", TestName: "Unit 1", MaxMarks: 50, MarksObtained: 45}
	if assert.NoError(t, nr.Validate(validate)) {
		assert.Equal(t, "s1", nr.StudentID)
	}

	nr = NewResult{StudentID: "s1", SubjectID: "math", TestName: "Unit 1", MaxMarks: 50, MarksObtained: 51}
	assert.Equal(t, errMarksAboveMax, nr.Validate(validate))

	nr = NewResult{StudentID: "s1", SubjectID: "math", TestName: "Unit 1"}
	assert.Error(t, nr.Validate(validate))
}

func TestUpdateResult_Validate(t *testing.T) {
	validate := newValidator()
	orig := TestResult{MaxMarks: 50, MarksObtained: 40}

	max := 30.0
	ur := UpdateResult{MaxMarks: &max}
	assert.Equal(t, errMarksAboveMax, ur.Validate(orig, validate))

	marks := 25.0
	ur = UpdateResult{MaxMarks: &max, MarksObtained: &marks}
	assert.NoError(t, ur.Validate(orig, validate))
}

func TestBulkResults_Validate(t *testing.T) {
	validate := newValidator()

	br := BulkResults{SubjectID: "math", TestName: "Unit 1", MaxMarks: 20}
	assert.Error(t, br.Validate(validate))

	br.Entries = []BulkEntry{{StudentID: "s1", MarksObtained: 20}, {StudentID: "s2", MarksObtained: 21}}
	assert.Equal(t, errMarksAboveMax, br.Validate(validate))

	br.Entries[1].MarksObtained = 10
	assert.NoError(t, br.Validate(validate))
}

func TestComputeTestStats(t *testing.T) {
	results := []TestResult{
		{SubjectID: "math", TestName: "Unit 1", MaxMarks: 50, MarksObtained: 45}, // 90
		{SubjectID: "math", TestName: "Unit 1", MaxMarks: 50, MarksObtained: 30}, // 60
		{SubjectID: "math", TestName: "Unit 1", MaxMarks: 50, MarksObtained: 15}, // 30
	}

	assert.Equal(t, TestStats{
		SubjectID:      "math",
		TestName:       "Unit 1",
		Count:          3,
		Average:        60,
		Highest:        90,
		Lowest:         30,
		Passed:         2,
		PassPercentage: 66.67,
	}, ComputeTestStats(results, 40))

	assert.Equal(t, TestStats{}, ComputeTestStats(nil, 40))
}

func TestBuildStudentReport(t *testing.T) {
	stud := student.Student{ID: "s1", Name: "Ann"}
	results := []TestResult{
		{SubjectID: "physics", MaxMarks: 100, MarksObtained: 70},
		{SubjectID: "math", MaxMarks: 50, MarksObtained: 45},
		{SubjectID: "math", MaxMarks: 20, MarksObtained: 17},
	}

	report := BuildStudentReport(stud, results)
	assert.Equal(t, StudentReport{
		StudentID:   "s1",
		StudentName: "Ann",
		Subjects: []SubjectReport{
			{SubjectID: "math", Tests: 2, Average: 87.5, Best: 90, Grade: "A"},
			{SubjectID: "physics", Tests: 1, Average: 70, Best: 70, Grade: "B"},
		},
		Tests:   3,
		Overall: 81.67,
		Grade:   "A",
	}, report)

	empty := BuildStudentReport(stud, nil)
	assert.Equal(t, 0, empty.Tests)
	assert.Empty(t, empty.Grade)
	assert.NotNil(t, empty.Subjects)
}
