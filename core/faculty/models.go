package faculty

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Faculty is a teaching member of a center. It may be linked to a `faculty:` User.
type Faculty struct {
	ID            string    `json:"id" bson:"id"`
	CenterID      string    `json:"center_id" bson:"center_id"`
	UserID        string    `json:"user_id" bson:"user_id"`
	Name          string    `json:"name" bson:"name"`
	Email         string    `json:"email" bson:"email"`
	Phone         string    `json:"phone" bson:"phone"`
	Qualification string    `json:"qualification" bson:"qualification"`
	SubjectIDs    []string  `json:"subject_ids" bson:"subject_ids"`
	JoinedAt      time.Time `json:"joined_at" bson:"joined_at"` // UTC
	IsActive      bool      `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

func (f Faculty) Teaches(subjectID string) bool {
	return core.StringInSlice(subjectID, f.SubjectIDs)
}

type NewFaculty struct {
	Name          string     `json:"name" validate:"required"`
	Email         string     `json:"email" validate:"omitempty,email"`
	Phone         string     `json:"phone"`
	Qualification string     `json:"qualification"`
	SubjectIDs    []string   `json:"subject_ids"`
	JoinedAt      *time.Time `json:"joined_at"`

	// Account, when set, creates the faculty member's login.
	Account *user.NewUser `json:"account" validate:"-"`
}

func (nf *NewFaculty) Validate(ctx context.Context, validate *validator.Validate, usrSvc user.ServiceInterface) error {
	nf.Name = core.CleanString(nf.Name)
	nf.Email = core.CleanString(nf.Email, true /* lower */)
	nf.Phone = core.CleanString(nf.Phone)
	nf.Qualification = core.CleanString(nf.Qualification)
	nf.SubjectIDs = core.CleanStrings(nf.SubjectIDs)

	if err := validate.Struct(nf); err != nil {
		return err
	}
	if nf.Account == nil {
		return nil
	}
	if core.CleanString(nf.Account.Name) == "" {
		nf.Account.Name = nf.Name
	}
	if core.CleanString(nf.Account.Email) == "" {
		nf.Account.Email = nf.Email
	}
	nf.Account.Roles = []string{user.RoleFaculty}
	return nf.Account.Validate(ctx, validate, usrSvc)
}

type UpdateFaculty struct {
	Name          string   `json:"name"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Phone         string   `json:"phone"`
	Qualification string   `json:"qualification"`
	SubjectIDs    []string `json:"subject_ids"`
	IsActive      *bool    `json:"is_active"`
}

func (uf *UpdateFaculty) Validate(orig Faculty, validate *validator.Validate) error {
	if name := core.CleanString(uf.Name); name != "" {
		uf.Name = name
	} else {
		uf.Name = orig.Name
	}
	if email := core.CleanString(uf.Email, true /* lower */); email != "" {
		uf.Email = email
	} else {
		uf.Email = orig.Email
	}
	if phone := core.CleanString(uf.Phone); phone != "" {
		uf.Phone = phone
	} else {
		uf.Phone = orig.Phone
	}
	if qual := core.CleanString(uf.Qualification); qual != "" {
		uf.Qualification = qual
	} else {
		uf.Qualification = orig.Qualification
	}
	if uf.SubjectIDs != nil {
		uf.SubjectIDs = core.CleanStrings(uf.SubjectIDs)
	} else {
		uf.SubjectIDs = orig.SubjectIDs
	}
	return validate.Struct(uf)
}

type QueryFilter struct {
	Search    string `query:"search"`
	SubjectID string `query:"subject_id"`
	IsActive  *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SubjectID = core.CleanString(qf.SubjectID)
}

// Where returns the part of the filter the document store can apply.
// subject_ids is an array field: it is matched in memory.
func (qf *QueryFilter) Where() core.Filter {
	where := core.Filter{}
	if qf != nil && qf.IsActive != nil {
		where["is_active"] = *qf.IsActive
	}
	return where
}

func (qf *QueryFilter) Match(f Faculty) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, f.Name, f.Email, f.Phone, f.Qualification) {
		return false
	}
	if qf.SubjectID != "" && !f.Teaches(qf.SubjectID) {
		return false
	}
	if qf.IsActive != nil && f.IsActive != *qf.IsActive {
		return false
	}
	return true
}
