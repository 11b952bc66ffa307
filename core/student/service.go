package student

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("student")

	// batch-wise by default
	defaultOrdering = []core.DBOrdering{{Field: "batch", Ascending: true}, {Field: "name", Ascending: true}}
)

type Repository interface {
	Create(ctx context.Context, s Student) (Student, error)
	// CreateMany inserts students with a single batch write.
	CreateMany(ctx context.Context, students []Student) error
	Get(ctx context.Context, centerID, id string) (Student, error)
	GetByUser(ctx context.Context, centerID, userID string) (Student, error)
	Query(ctx context.Context, centerID string, where core.Filter) ([]Student, error)
	Update(ctx context.Context, s Student) (Student, error)
	// Delete removes the student along with their enrollments.
	Delete(ctx context.Context, centerID, id string) error
}

type Service struct {
	repo   Repository
	usrSvc user.ServiceInterface
}

func NewService(repo Repository, usrSvc user.ServiceInterface) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

func (svc *Service) Create(ctx context.Context, centerID string, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	s := Student{
		ID:            uuid.NewString(),
		CenterID:      centerID,
		Name:          ns.Name,
		Email:         ns.Email,
		Phone:         ns.Phone,
		GuardianName:  ns.GuardianName,
		GuardianPhone: ns.GuardianPhone,
		Batch:         ns.Batch,
		JoinedAt:      now,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ns.JoinedAt != nil {
		s.JoinedAt = ns.JoinedAt.UTC()
	}

	if ns.Account != nil {
		usr, err := svc.usrSvc.Create(ctx, centerID, *ns.Account)
		if err != nil {
			return Student{}, errors.Wrap(err, "creating student user")
		}
		s.UserID = usr.ID
	}

	created, err := svc.repo.Create(ctx, s)
	if err != nil {
		if s.UserID != "" {
			_ = svc.usrSvc.Delete(ctx, centerID, s.UserID)
		}
		return Student{}, err
	}
	return created, nil
}

// Import creates a student for every valid row. Invalid rows are reported, not created.
func (svc *Service) Import(ctx context.Context, centerID string, rows []ImportRow, validate *validator.Validate) (ImportReport, error) {
	report := ImportReport{Errors: []RowError{}}
	now := time.Now().UTC()

	students := make([]Student, 0, len(rows))
	for i, row := range rows {
		ns := NewStudent{
			Name:          row["name"],
			Email:         row["email"],
			Phone:         row["phone"],
			GuardianName:  row["guardian_name"],
			GuardianPhone: row["guardian_phone"],
			Batch:         row["batch"],
		}
		ns.Clean()
		if err := validate.Struct(ns); err != nil {
			report.Errors = append(report.Errors, RowError{Row: i + 2, Error: rowError(err)})
			continue
		}
		students = append(students, Student{
			ID:            uuid.NewString(),
			CenterID:      centerID,
			Name:          ns.Name,
			Email:         ns.Email,
			Phone:         ns.Phone,
			GuardianName:  ns.GuardianName,
			GuardianPhone: ns.GuardianPhone,
			Batch:         ns.Batch,
			JoinedAt:      now,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if len(students) > 0 {
		if err := svc.repo.CreateMany(ctx, students); err != nil {
			return ImportReport{}, errors.Wrap(err, "creating students")
		}
	}
	report.Created = len(students)
	return report, nil
}

func rowError(err error) string {
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		msgs := make([]string, 0, len(vErrs))
		for _, vErr := range vErrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s", vErr.Field(), vErr.Tag()))
		}
		return strings.Join(msgs, ", ")
	}
	return err.Error()
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Student, error) {
	all, err := svc.repo.Query(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	students := make([]Student, 0, len(all))
	for _, s := range all {
		if filter == nil || filter.Match(s) {
			students = append(students, s)
		}
	}

	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(students, orderings, core.Comparators{
		"name":       func(i, j int) int { return core.CompareStrings(students[i].Name, students[j].Name) },
		"email":      func(i, j int) int { return core.CompareStrings(students[i].Email, students[j].Email) },
		"batch":      func(i, j int) int { return core.CompareStrings(students[i].Batch, students[j].Batch) },
		"is_active":  func(i, j int) int { return core.CompareBools(students[i].IsActive, students[j].IsActive) },
		"joined_at":  func(i, j int) int { return core.CompareTimes(students[i].JoinedAt, students[j].JoinedAt) },
		"created_at": func(i, j int) int { return core.CompareTimes(students[i].CreatedAt, students[j].CreatedAt) },
	})
	return students, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Student, error) {
	return svc.repo.Get(ctx, centerID, id)
}

// GetByUser returns the student account linked to a `student:` user.
func (svc *Service) GetByUser(ctx context.Context, centerID, userID string) (Student, error) {
	return svc.repo.GetByUser(ctx, centerID, userID)
}

func (svc *Service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	s.Name = us.Name
	s.Email = us.Email
	s.Phone = us.Phone
	s.GuardianName = us.GuardianName
	s.GuardianPhone = us.GuardianPhone
	s.Batch = us.Batch
	if us.JoinedAt != nil {
		s.JoinedAt = us.JoinedAt.UTC()
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.Delete(ctx, centerID, id)
}

// ListBatches returns the distinct batches of the center, sorted by name.
func (svc *Service) ListBatches(ctx context.Context, centerID string) ([]Batch, error) {
	students, err := svc.repo.Query(ctx, centerID, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]*Batch)
	for _, s := range students {
		b, ok := counts[s.Batch]
		if !ok {
			b = &Batch{Name: s.Batch}
			counts[s.Batch] = b
		}
		b.Students++
		if s.IsActive {
			b.Active++
		}
	}

	batches := make([]Batch, 0, len(counts))
	for _, b := range counts {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Name < batches[j].Name })
	return batches, nil
}
