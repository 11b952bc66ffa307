package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Student is a student account of a center. It may be linked to a `student:` User.
type Student struct {
	ID            string    `json:"id" bson:"id"`
	CenterID      string    `json:"center_id" bson:"center_id"`
	UserID        string    `json:"user_id" bson:"user_id"`
	Name          string    `json:"name" bson:"name"`
	Email         string    `json:"email" bson:"email"`
	Phone         string    `json:"phone" bson:"phone"`
	GuardianName  string    `json:"guardian_name" bson:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone" bson:"guardian_phone"`
	Batch         string    `json:"batch" bson:"batch"`
	JoinedAt      time.Time `json:"joined_at" bson:"joined_at"` // UTC
	IsActive      bool      `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

type NewStudent struct {
	Name          string     `json:"name" validate:"required"`
	Email         string     `json:"email" validate:"omitempty,email"`
	Phone         string     `json:"phone"`
	GuardianName  string     `json:"guardian_name"`
	GuardianPhone string     `json:"guardian_phone"`
	Batch         string     `json:"batch" validate:"required"`
	JoinedAt      *time.Time `json:"joined_at"`

	// Account, when set, creates the student's login.
	Account *user.NewUser `json:"account" validate:"-"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianPhone = core.CleanString(ns.GuardianPhone)
	ns.Batch = core.CleanString(ns.Batch)
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, usrSvc user.ServiceInterface) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Account == nil {
		return nil
	}
	if core.CleanString(ns.Account.Name) == "" {
		ns.Account.Name = ns.Name
	}
	if core.CleanString(ns.Account.Email) == "" {
		ns.Account.Email = ns.Email
	}
	ns.Account.Roles = []string{user.RoleStudent}
	return ns.Account.Validate(ctx, validate, usrSvc)
}

type UpdateStudent struct {
	Name          string     `json:"name"`
	Email         string     `json:"email" validate:"omitempty,email"`
	Phone         string     `json:"phone"`
	GuardianName  string     `json:"guardian_name"`
	GuardianPhone string     `json:"guardian_phone"`
	Batch         string     `json:"batch"`
	JoinedAt      *time.Time `json:"joined_at"`
	IsActive      *bool      `json:"is_active"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	us.Name = cleanOr(us.Name, orig.Name)
	us.Email = cleanOr(core.CleanString(us.Email, true /* lower */), orig.Email)
	us.Phone = cleanOr(us.Phone, orig.Phone)
	us.GuardianName = cleanOr(us.GuardianName, orig.GuardianName)
	us.GuardianPhone = cleanOr(us.GuardianPhone, orig.GuardianPhone)
	us.Batch = cleanOr(us.Batch, orig.Batch)
	return validate.Struct(us)
}

func cleanOr(val, orig string) string {
	if val = core.CleanString(val); val != "" {
		return val
	}
	return orig
}

type QueryFilter struct {
	Search     string         `query:"search"`
	Batch      string         `query:"batch"`
	IsActive   *bool          `query:"is_active"`
	JoinedFrom core.QueryTime `query:"joined_from"`
	JoinedTo   core.QueryTime `query:"joined_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Batch = core.CleanString(qf.Batch)
}

// Where returns the part of the filter the document store can apply.
func (qf *QueryFilter) Where() core.Filter {
	where := core.Filter{}
	if qf == nil {
		return where
	}
	if qf.Batch != "" {
		where["batch"] = qf.Batch
	}
	if qf.IsActive != nil {
		where["is_active"] = *qf.IsActive
	}
	return where
}

func (qf *QueryFilter) Match(s Student) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, s.Name, s.Email, s.Phone) {
		return false
	}
	if qf.Batch != "" && s.Batch != qf.Batch {
		return false
	}
	if qf.IsActive != nil && s.IsActive != *qf.IsActive {
		return false
	}
	if !qf.JoinedFrom.IsZero() && s.JoinedAt.Before(qf.JoinedFrom.Time) {
		return false
	}
	if !qf.JoinedTo.IsZero() && s.JoinedAt.After(qf.JoinedTo.EndOfDay()) {
		return false
	}
	return true
}

// Batch is a distinct student batch along with its number of students.
type Batch struct {
	Name     string `json:"name"`
	Students int    `json:"students"`
	Active   int    `json:"active"`
}

// ImportRow is a spreadsheet row keyed by its (lower-cased) header.
type ImportRow map[string]string

type RowError struct {
	Row   int    `json:"row"` // 1-based, header included
	Error string `json:"error"`
}

type ImportReport struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

// ImportHeader lists the columns read from student spreadsheets.
var ImportHeader = []string{"name", "email", "phone", "guardian_name", "guardian_phone", "batch"}
