package result

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var errMarksAboveMax = core.NewValidationError(nil, core.FieldError{Field: "marks_obtained", Error: "marks_obtained cannot exceed max_marks"})

// TestResult is the mark a student obtained at a test of a subject.
type TestResult struct {
	ID            string    `json:"id" bson:"id"`
	CenterID      string    `json:"center_id" bson:"center_id"`
	StudentID     string    `json:"student_id" bson:"student_id"`
	StudentName   string    `json:"student_name" bson:"student_name"`
	SubjectID     string    `json:"subject_id" bson:"subject_id"`
	Batch         string    `json:"batch" bson:"batch"`
	TestName      string    `json:"test_name" bson:"test_name"`
	TestDate      time.Time `json:"test_date" bson:"test_date"` // UTC
	MaxMarks      float64   `json:"max_marks" bson:"max_marks"`
	MarksObtained float64   `json:"marks_obtained" bson:"marks_obtained"`
	Remarks       string    `json:"remarks" bson:"remarks"`
	RecordedBy    string    `json:"recorded_by" bson:"recorded_by"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

// Percentage of the max marks obtained.
func (r TestResult) Percentage() float64 {
	if r.MaxMarks <= 0 {
		return 0
	}
	return r.MarksObtained / r.MaxMarks * 100
}

// Grade returns the grade band of a percentage.
func Grade(pct float64) string {
	switch {
	case pct >= 90:
		return "A+"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	case pct >= 50:
		return "D"
	}
	return "F"
}

type NewResult struct {
	StudentID     string     `json:"student_id" validate:"required"`
	SubjectID     string     `json:"subject_id" validate:"required"`
	TestName      string     `json:"test_name" validate:"required"`
	TestDate      *time.Time `json:"test_date"`
	MaxMarks      float64    `json:"max_marks" validate:"required,gt=0"`
	MarksObtained float64    `json:"marks_obtained" validate:"gte=0"`
	Remarks       string     `json:"remarks"`
}

func (nr *NewResult) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.SubjectID = core.CleanString(nr.SubjectID)
	nr.TestName = core.CleanString(nr.TestName)
	nr.Remarks = core.CleanString(nr.Remarks)
	if err := validate.Struct(nr); err != nil {
		return err
	}
	if nr.MarksObtained > nr.MaxMarks {
		return errMarksAboveMax
	}
	return nil
}

type BulkEntry struct {
	StudentID     string  `json:"student_id" validate:"required"`
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0"`
	Remarks       string  `json:"remarks"`
}

// BulkResults records one test for many students.
type BulkResults struct {
	SubjectID string      `json:"subject_id" validate:"required"`
	TestName  string      `json:"test_name" validate:"required"`
	TestDate  *time.Time  `json:"test_date"`
	MaxMarks  float64     `json:"max_marks" validate:"required,gt=0"`
	Entries   []BulkEntry `json:"entries" validate:"required,min=1,dive"`
}

func (br *BulkResults) Validate(validate *validator.Validate) error {
	br.SubjectID = core.CleanString(br.SubjectID)
	br.TestName = core.CleanString(br.TestName)
	for i := range br.Entries {
		br.Entries[i].StudentID = core.CleanString(br.Entries[i].StudentID)
		br.Entries[i].Remarks = core.CleanString(br.Entries[i].Remarks)
	}
	if err := validate.Struct(br); err != nil {
		return err
	}
	for _, e := range br.Entries {
		if e.MarksObtained > br.MaxMarks {
			return errMarksAboveMax
		}
	}
	return nil
}

type UpdateResult struct {
	TestName      string     `json:"test_name"`
	TestDate      *time.Time `json:"test_date"`
	MaxMarks      *float64   `json:"max_marks" validate:"omitempty,gt=0"`
	MarksObtained *float64   `json:"marks_obtained" validate:"omitempty,gte=0"`
	Remarks       *string    `json:"remarks"`
}

func (ur *UpdateResult) Validate(orig TestResult, validate *validator.Validate) error {
	ur.TestName = core.CleanString(ur.TestName)
	if ur.Remarks != nil {
		*ur.Remarks = core.CleanString(*ur.Remarks)
	}
	if err := validate.Struct(ur); err != nil {
		return err
	}

	max, marks := orig.MaxMarks, orig.MarksObtained
	if ur.MaxMarks != nil {
		max = *ur.MaxMarks
	}
	if ur.MarksObtained != nil {
		marks = *ur.MarksObtained
	}
	if marks > max {
		return errMarksAboveMax
	}
	return nil
}

type QueryFilter struct {
	StudentID string         `query:"student_id"`
	SubjectID string         `query:"subject_id"`
	Batch     string         `query:"batch"`
	TestName  string         `query:"test_name"`
	DateFrom  core.QueryTime `query:"date_from"`
	DateTo    core.QueryTime `query:"date_to"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	qf.Batch = core.CleanString(qf.Batch)
	qf.TestName = core.CleanString(qf.TestName)
}

func (qf *QueryFilter) Where() core.Filter {
	where := core.Filter{}
	if qf == nil {
		return where
	}
	if qf.StudentID != "" {
		where["student_id"] = qf.StudentID
	}
	if qf.SubjectID != "" {
		where["subject_id"] = qf.SubjectID
	}
	if qf.Batch != "" {
		where["batch"] = qf.Batch
	}
	return where
}

func (qf *QueryFilter) Match(r TestResult) bool {
	if qf.TestName != "" && !core.ContainsFold(qf.TestName, r.TestName) {
		return false
	}
	if !qf.DateFrom.IsZero() && r.TestDate.Before(qf.DateFrom.Time) {
		return false
	}
	if !qf.DateTo.IsZero() && r.TestDate.After(qf.DateTo.EndOfDay()) {
		return false
	}
	return true
}

type (
	TestStats struct {
		SubjectID      string  `json:"subject_id"`
		TestName       string  `json:"test_name"`
		Count          int     `json:"count"`
		Average        float64 `json:"average"` // percentage
		Highest        float64 `json:"highest"` // percentage
		Lowest         float64 `json:"lowest"`  // percentage
		Passed         int     `json:"passed"`
		PassPercentage float64 `json:"pass_percentage"`
	}

	SubjectReport struct {
		SubjectID string  `json:"subject_id"`
		Tests     int     `json:"tests"`
		Average   float64 `json:"average"` // percentage
		Best      float64 `json:"best"`    // percentage
		Grade     string  `json:"grade"`
	}

	StudentReport struct {
		StudentID   string          `json:"student_id"`
		StudentName string          `json:"student_name"`
		Subjects    []SubjectReport `json:"subjects"`
		Tests       int             `json:"tests"`
		Overall     float64         `json:"overall"` // percentage
		Grade       string          `json:"grade"`
	}
)
