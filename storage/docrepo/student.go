package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/student"
)

type studentRepository struct {
	store core.DocStore
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(store core.DocStore) *studentRepository {
	return &studentRepository{store: store}
}

func studentCenter(s student.Student) string { return s.CenterID }

func (repo studentRepository) Create(ctx context.Context, s student.Student) (student.Student, error) {
	if err := repo.store.Insert(ctx, core.CollStudents, s.ID, s); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) CreateMany(ctx context.Context, students []student.Student) error {
	if len(students) == 0 {
		return nil
	}
	ops := insertOps(core.CollStudents, len(students), func(i int) (string, interface{}) {
		return students[i].ID, students[i]
	})
	return errors.Wrap(repo.store.WriteBatch(ctx, ops), "inserting students")
}

func (repo studentRepository) Get(ctx context.Context, centerID, id string) (student.Student, error) {
	return getScoped(ctx, repo.store, core.CollStudents, centerID, id, student.ErrNotFound, studentCenter)
}

func (repo studentRepository) GetByUser(ctx context.Context, centerID, userID string) (student.Student, error) {
	if userID == "" {
		return student.Student{}, student.ErrNotFound
	}
	studs, err := findScoped[student.Student](ctx, repo.store, core.CollStudents, centerID, core.Filter{"user_id": userID})
	if err != nil {
		return student.Student{}, err
	}
	if len(studs) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return studs[0], nil
}

func (repo studentRepository) Query(ctx context.Context, centerID string, where core.Filter) ([]student.Student, error) {
	return findScoped[student.Student](ctx, repo.store, core.CollStudents, centerID, where)
}

func (repo studentRepository) Update(ctx context.Context, s student.Student) (student.Student, error) {
	if err := repo.store.Replace(ctx, core.CollStudents, s.ID, s); err != nil {
		return student.Student{}, trapNoDocErr(err, student.ErrNotFound, "updating student")
	}
	return s, nil
}

// Delete deletes the student with their enrollments and login.
func (repo studentRepository) Delete(ctx context.Context, centerID, id string) error {
	s, err := repo.Get(ctx, centerID, id)
	if err != nil {
		return err
	}
	enrollments, err := scopedIDs(ctx, repo.store, core.CollEnrollments, centerID, core.Filter{"student_id": id})
	if err != nil {
		return errors.Wrap(err, "finding student enrollments")
	}

	ops := append(deleteOps(core.CollEnrollments, enrollments...), deleteOps(core.CollStudents, id)...)
	if s.UserID != "" {
		users, err := scopedIDs(ctx, repo.store, core.CollUsers, centerID, core.Filter{"id": s.UserID})
		if err != nil {
			return errors.Wrap(err, "finding student user")
		}
		ops = append(ops, deleteOps(core.CollUsers, users...)...)
	}
	return errors.Wrap(repo.store.WriteBatch(ctx, ops), "deleting student")
}
