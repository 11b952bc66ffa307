package subject

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("subject")
	ErrCodeExists     = errors.New("a subject with this code already exists")
	ErrHasEnrollments = core.NewValidationError(errors.New("subject has active enrollments"))

	defaultOrdering = []core.DBOrdering{{Field: "batch", Ascending: true}, {Field: "name", Ascending: true}}
)

type Repository interface {
	Create(ctx context.Context, s Subject) (Subject, error)
	Get(ctx context.Context, centerID, id string) (Subject, error)
	GetByCode(ctx context.Context, centerID, code string) (Subject, error)
	Query(ctx context.Context, centerID string, where core.Filter) ([]Subject, error)
	Update(ctx context.Context, s Subject) (Subject, error)
	Delete(ctx context.Context, centerID, id string) error
	CountActiveEnrollments(ctx context.Context, centerID, subjectID string) (int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckCodeUniqueness checks that no subject of the center uses code.
func (svc *Service) CheckCodeUniqueness(ctx context.Context, centerID, code string) error {
	_, err := svc.repo.GetByCode(ctx, centerID, code)
	switch err {
	case nil:
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	case ErrNotFound:
		return nil
	}
	return err
}

func (svc *Service) Create(ctx context.Context, centerID string, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	return svc.repo.Create(ctx, Subject{
		ID:          uuid.NewString(),
		CenterID:    centerID,
		Name:        ns.Name,
		Code:        ns.Code,
		Batch:       ns.Batch,
		FacultyID:   ns.FacultyID,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Subject, error) {
	all, err := svc.repo.Query(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	subjects := make([]Subject, 0, len(all))
	for _, s := range all {
		if filter == nil || filter.Match(s) {
			subjects = append(subjects, s)
		}
	}

	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(subjects, orderings, core.Comparators{
		"name":       func(i, j int) int { return core.CompareStrings(subjects[i].Name, subjects[j].Name) },
		"code":       func(i, j int) int { return core.CompareStrings(subjects[i].Code, subjects[j].Code) },
		"batch":      func(i, j int) int { return core.CompareStrings(subjects[i].Batch, subjects[j].Batch) },
		"created_at": func(i, j int) int { return core.CompareTimes(subjects[i].CreatedAt, subjects[j].CreatedAt) },
	})
	return subjects, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Subject, error) {
	return svc.repo.Get(ctx, centerID, id)
}

func (svc *Service) Update(ctx context.Context, s Subject, us UpdateSubject) (Subject, error) {
	s.Name = us.Name
	s.Code = us.Code
	s.Batch = *us.Batch
	s.FacultyID = *us.FacultyID
	s.Description = *us.Description
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, s)
}

// Delete deletes a subject. Subjects with active enrollments cannot be deleted.
func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	n, err := svc.repo.CountActiveEnrollments(ctx, centerID, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasEnrollments
	}
	return svc.repo.Delete(ctx, centerID, id)
}
