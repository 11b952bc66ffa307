package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("enrollment")
	ErrAlreadyActive = core.NewValidationError(errors.New("student is already enrolled in this subject"))

	defaultOrdering = []core.DBOrdering{{Field: "enrolled_at", Ascending: false}}
)

type (
	Repository interface {
		Create(ctx context.Context, e Enrollment) (Enrollment, error)
		Get(ctx context.Context, centerID, id string) (Enrollment, error)
		Query(ctx context.Context, centerID string, where core.Filter) ([]Enrollment, error)
		Update(ctx context.Context, e Enrollment) (Enrollment, error)
		Delete(ctx context.Context, centerID, id string) error
	}

	StudentGetter interface {
		Get(ctx context.Context, centerID, id string) (student.Student, error)
	}

	SubjectGetter interface {
		Get(ctx context.Context, centerID, id string) (subject.Subject, error)
	}
)

type Service struct {
	repo     Repository
	students StudentGetter
	subjects SubjectGetter
}

func NewService(repo Repository, students StudentGetter, subjects SubjectGetter) *Service {
	return &Service{repo: repo, students: students, subjects: subjects}
}

// Enroll enrolls a student in a subject. The enrollment's batch is the student's.
func (svc *Service) Enroll(ctx context.Context, centerID string, ne NewEnrollment) (Enrollment, error) {
	stud, err := svc.students.Get(ctx, centerID, ne.StudentID)
	if err != nil {
		return Enrollment{}, err
	}
	if _, err = svc.subjects.Get(ctx, centerID, ne.SubjectID); err != nil {
		return Enrollment{}, err
	}

	existing, err := svc.repo.Query(ctx, centerID, core.Filter{
		"student_id": ne.StudentID,
		"subject_id": ne.SubjectID,
		"status":     StatusActive,
	})
	if err != nil {
		return Enrollment{}, err
	}
	if len(existing) > 0 {
		return Enrollment{}, ErrAlreadyActive
	}

	now := time.Now().UTC()
	e := Enrollment{
		ID:         uuid.NewString(),
		CenterID:   centerID,
		StudentID:  stud.ID,
		SubjectID:  ne.SubjectID,
		Batch:      stud.Batch,
		Status:     StatusActive,
		EnrolledAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ne.EnrolledAt != nil {
		e.EnrolledAt = ne.EnrolledAt.UTC()
	}
	return svc.repo.Create(ctx, e)
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Enrollment, error) {
	enrollments, err := svc.repo.Query(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(enrollments, orderings, core.Comparators{
		"batch":       func(i, j int) int { return core.CompareStrings(enrollments[i].Batch, enrollments[j].Batch) },
		"status":      func(i, j int) int { return core.CompareStrings(enrollments[i].Status, enrollments[j].Status) },
		"enrolled_at": func(i, j int) int { return core.CompareTimes(enrollments[i].EnrolledAt, enrollments[j].EnrolledAt) },
		"created_at":  func(i, j int) int { return core.CompareTimes(enrollments[i].CreatedAt, enrollments[j].CreatedAt) },
	})
	return enrollments, nil
}

// Active returns every active enrollment of the center.
func (svc *Service) Active(ctx context.Context, centerID string) ([]Enrollment, error) {
	return svc.repo.Query(ctx, centerID, core.Filter{"status": StatusActive})
}

func (svc *Service) ForStudent(ctx context.Context, centerID, studentID string) ([]Enrollment, error) {
	return svc.Query(ctx, centerID, &QueryFilter{StudentID: studentID}, nil)
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Enrollment, error) {
	return svc.repo.Get(ctx, centerID, id)
}

func (svc *Service) UpdateStatus(ctx context.Context, e Enrollment, us UpdateStatus) (Enrollment, error) {
	if us.Status == StatusActive && !e.IsActive() {
		existing, err := svc.repo.Query(ctx, e.CenterID, core.Filter{
			"student_id": e.StudentID,
			"subject_id": e.SubjectID,
			"status":     StatusActive,
		})
		if err != nil {
			return Enrollment{}, err
		}
		if len(existing) > 0 {
			return Enrollment{}, ErrAlreadyActive
		}
	}
	e.Status = us.Status
	e.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, e)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.Delete(ctx, centerID, id)
}
