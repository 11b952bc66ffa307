package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusCompleted = "completed"
)

// Enrollment links a student to a subject.
type Enrollment struct {
	ID         string    `json:"id" bson:"id"`
	CenterID   string    `json:"center_id" bson:"center_id"`
	StudentID  string    `json:"student_id" bson:"student_id"`
	SubjectID  string    `json:"subject_id" bson:"subject_id"`
	Batch      string    `json:"batch" bson:"batch"`
	Status     string    `json:"status" bson:"status"`
	EnrolledAt time.Time `json:"enrolled_at" bson:"enrolled_at"` // UTC
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`   // UTC
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`   // UTC
}

func (e Enrollment) IsActive() bool { return e.Status == StatusActive }

type NewEnrollment struct {
	StudentID  string     `json:"student_id" validate:"required"`
	SubjectID  string     `json:"subject_id" validate:"required"`
	EnrolledAt *time.Time `json:"enrolled_at"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.SubjectID = core.CleanString(ne.SubjectID)
	return validate.Struct(ne)
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=active inactive completed"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	SubjectID string `query:"subject_id"`
	Batch     string `query:"batch"`
	Status    string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	qf.Batch = core.CleanString(qf.Batch)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// Where returns the document store filter: every field of an enrollment filter is scalar.
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
	if qf.Status != "" {
		where["status"] = qf.Status
	}
	return where
}
