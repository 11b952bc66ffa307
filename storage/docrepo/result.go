package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/result"
)

type resultRepository struct {
	store core.DocStore
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(store core.DocStore) *resultRepository {
	return &resultRepository{store: store}
}

func (repo resultRepository) Create(ctx context.Context, r result.TestResult) (result.TestResult, error) {
	if err := repo.store.Insert(ctx, core.CollTestResults, r.ID, r); err != nil {
		return result.TestResult{}, errors.Wrap(err, "inserting test result")
	}
	return r, nil
}

func (repo resultRepository) CreateMany(ctx context.Context, results []result.TestResult) error {
	if len(results) == 0 {
		return nil
	}
	ops := insertOps(core.CollTestResults, len(results), func(i int) (string, interface{}) {
		return results[i].ID, results[i]
	})
	return errors.Wrap(repo.store.WriteBatch(ctx, ops), "inserting test results")
}

func (repo resultRepository) Get(ctx context.Context, centerID, id string) (result.TestResult, error) {
	return getScoped(ctx, repo.store, core.CollTestResults, centerID, id, result.ErrNotFound, func(r result.TestResult) string {
		return r.CenterID
	})
}

func (repo resultRepository) Query(ctx context.Context, centerID string, where core.Filter) ([]result.TestResult, error) {
	return findScoped[result.TestResult](ctx, repo.store, core.CollTestResults, centerID, where)
}

func (repo resultRepository) Update(ctx context.Context, r result.TestResult) (result.TestResult, error) {
	if err := repo.store.Replace(ctx, core.CollTestResults, r.ID, r); err != nil {
		return result.TestResult{}, trapNoDocErr(err, result.ErrNotFound, "updating test result")
	}
	return r, nil
}

func (repo resultRepository) Delete(ctx context.Context, centerID, id string) error {
	return deleteScoped(ctx, repo.store, core.CollTestResults, centerID, id, result.ErrNotFound)
}
