package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentRepository struct {
	store core.DocStore
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(store core.DocStore) *enrollmentRepository {
	return &enrollmentRepository{store: store}
}

func (repo enrollmentRepository) Create(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	if err := repo.store.Insert(ctx, core.CollEnrollments, e.ID, e); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo enrollmentRepository) Get(ctx context.Context, centerID, id string) (enrollment.Enrollment, error) {
	return getScoped(ctx, repo.store, core.CollEnrollments, centerID, id, enrollment.ErrNotFound, func(e enrollment.Enrollment) string {
		return e.CenterID
	})
}

func (repo enrollmentRepository) Query(ctx context.Context, centerID string, where core.Filter) ([]enrollment.Enrollment, error) {
	return findScoped[enrollment.Enrollment](ctx, repo.store, core.CollEnrollments, centerID, where)
}

func (repo enrollmentRepository) Update(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	if err := repo.store.Replace(ctx, core.CollEnrollments, e.ID, e); err != nil {
		return enrollment.Enrollment{}, trapNoDocErr(err, enrollment.ErrNotFound, "updating enrollment")
	}
	return e, nil
}

func (repo enrollmentRepository) Delete(ctx context.Context, centerID, id string) error {
	return deleteScoped(ctx, repo.store, core.CollEnrollments, centerID, id, enrollment.ErrNotFound)
}
