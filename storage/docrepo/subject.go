package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/subject"
)

type subjectRepository struct {
	store core.DocStore
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(store core.DocStore) *subjectRepository {
	return &subjectRepository{store: store}
}

func (repo subjectRepository) Create(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	if err := repo.store.Insert(ctx, core.CollSubjects, s.ID, s); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo subjectRepository) Get(ctx context.Context, centerID, id string) (subject.Subject, error) {
	return getScoped(ctx, repo.store, core.CollSubjects, centerID, id, subject.ErrNotFound, func(s subject.Subject) string {
		return s.CenterID
	})
}

func (repo subjectRepository) GetByCode(ctx context.Context, centerID, code string) (subject.Subject, error) {
	subjects, err := repo.Query(ctx, centerID, core.Filter{"code": code})
	if err != nil {
		return subject.Subject{}, err
	}
	if len(subjects) == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return subjects[0], nil
}

func (repo subjectRepository) Query(ctx context.Context, centerID string, where core.Filter) ([]subject.Subject, error) {
	return findScoped[subject.Subject](ctx, repo.store, core.CollSubjects, centerID, where)
}

func (repo subjectRepository) Update(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	if err := repo.store.Replace(ctx, core.CollSubjects, s.ID, s); err != nil {
		return subject.Subject{}, trapNoDocErr(err, subject.ErrNotFound, "updating subject")
	}
	return s, nil
}

func (repo subjectRepository) Delete(ctx context.Context, centerID, id string) error {
	return deleteScoped(ctx, repo.store, core.CollSubjects, centerID, id, subject.ErrNotFound)
}

func (repo subjectRepository) CountActiveEnrollments(ctx context.Context, centerID, subjectID string) (int64, error) {
	where := tenant(centerID, core.Filter{"subject_id": subjectID, "status": enrollment.StatusActive})
	n, err := repo.store.Count(ctx, core.CollEnrollments, where)
	return n, errors.Wrap(err, "counting subject enrollments")
}
