package subject

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Subject struct {
	ID          string    `json:"id" bson:"id"`
	CenterID    string    `json:"center_id" bson:"center_id"`
	Name        string    `json:"name" bson:"name"`
	Code        string    `json:"code" bson:"code"`
	Batch       string    `json:"batch" bson:"batch"`
	FacultyID   string    `json:"faculty_id" bson:"faculty_id"`
	Description string    `json:"description" bson:"description"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

type NewSubject struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,max=20,alphanum_"`
	Batch       string `json:"batch"`
	FacultyID   string `json:"faculty_id"`
	Description string `json:"description"`
}

func (ns *NewSubject) Validate(ctx context.Context, centerID string, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.Batch = core.CleanString(ns.Batch)
	ns.FacultyID = core.CleanString(ns.FacultyID)
	ns.Description = core.CleanString(ns.Description)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, centerID, ns.Code)
}

type UpdateSubject struct {
	Name        string  `json:"name"`
	Code        string  `json:"code" validate:"omitempty,max=20,alphanum_"`
	Batch       *string `json:"batch"`
	FacultyID   *string `json:"faculty_id"`
	Description *string `json:"description"`
}

func (us *UpdateSubject) Validate(ctx context.Context, orig Subject, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if code := core.CleanString(us.Code, true /* lower */); code != "" {
		us.Code = code
	} else {
		us.Code = orig.Code
	}
	us.Batch = cleanOr(us.Batch, orig.Batch)
	us.FacultyID = cleanOr(us.FacultyID, orig.FacultyID)
	us.Description = cleanOr(us.Description, orig.Description)

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.Code == orig.Code {
		return nil
	}
	return svc.CheckCodeUniqueness(ctx, orig.CenterID, us.Code)
}

// cleanOr returns the cleaned value of an optional field, or orig when it was not provided.
func cleanOr(val *string, orig string) *string {
	if val == nil {
		return &orig
	}
	cleaned := core.CleanString(*val)
	return &cleaned
}

type QueryFilter struct {
	Search    string `query:"search"`
	Batch     string `query:"batch"`
	FacultyID string `query:"faculty_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Batch = core.CleanString(qf.Batch)
	qf.FacultyID = core.CleanString(qf.FacultyID)
}

func (qf *QueryFilter) Where() core.Filter {
	where := core.Filter{}
	if qf == nil {
		return where
	}
	if qf.Batch != "" {
		where["batch"] = qf.Batch
	}
	if qf.FacultyID != "" {
		where["faculty_id"] = qf.FacultyID
	}
	return where
}

func (qf *QueryFilter) Match(s Subject) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, s.Name, s.Code, s.Description) {
		return false
	}
	if qf.Batch != "" && s.Batch != qf.Batch {
		return false
	}
	if qf.FacultyID != "" && s.FacultyID != qf.FacultyID {
		return false
	}
	return true
}
