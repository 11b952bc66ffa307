package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/faculty"
)

type facultyRepository struct {
	store core.DocStore
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(store core.DocStore) *facultyRepository {
	return &facultyRepository{store: store}
}

func (repo facultyRepository) Create(ctx context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	if err := repo.store.Insert(ctx, core.CollFaculty, f.ID, f); err != nil {
		return faculty.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return f, nil
}

func (repo facultyRepository) Get(ctx context.Context, centerID, id string) (faculty.Faculty, error) {
	return getScoped(ctx, repo.store, core.CollFaculty, centerID, id, faculty.ErrNotFound, func(f faculty.Faculty) string {
		return f.CenterID
	})
}

func (repo facultyRepository) GetByUser(ctx context.Context, centerID, userID string) (faculty.Faculty, error) {
	if userID == "" {
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	members, err := repo.Query(ctx, centerID, core.Filter{"user_id": userID})
	if err != nil {
		return faculty.Faculty{}, err
	}
	if len(members) == 0 {
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	return members[0], nil
}

func (repo facultyRepository) Query(ctx context.Context, centerID string, where core.Filter) ([]faculty.Faculty, error) {
	return findScoped[faculty.Faculty](ctx, repo.store, core.CollFaculty, centerID, where)
}

func (repo facultyRepository) Update(ctx context.Context, f faculty.Faculty) (faculty.Faculty, error) {
	if err := repo.store.Replace(ctx, core.CollFaculty, f.ID, f); err != nil {
		return faculty.Faculty{}, trapNoDocErr(err, faculty.ErrNotFound, "updating faculty")
	}
	return f, nil
}

func (repo facultyRepository) Delete(ctx context.Context, centerID, id string) error {
	return deleteScoped(ctx, repo.store, core.CollFaculty, centerID, id, faculty.ErrNotFound)
}
