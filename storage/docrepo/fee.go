package docrepo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/fee"
)

type feeRepository struct {
	store core.DocStore
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(store core.DocStore) *feeRepository {
	return &feeRepository{store: store}
}

func (repo feeRepository) CreateStructure(ctx context.Context, s fee.Structure) (fee.Structure, error) {
	if err := repo.store.Insert(ctx, core.CollFeeStructures, s.ID, s); err != nil {
		return fee.Structure{}, errors.Wrap(err, "inserting fee structure")
	}
	return s, nil
}

func (repo feeRepository) GetStructure(ctx context.Context, centerID, id string) (fee.Structure, error) {
	return getScoped(ctx, repo.store, core.CollFeeStructures, centerID, id, fee.ErrStructureNotFound, func(s fee.Structure) string {
		return s.CenterID
	})
}

func (repo feeRepository) QueryStructures(ctx context.Context, centerID string, where core.Filter) ([]fee.Structure, error) {
	return findScoped[fee.Structure](ctx, repo.store, core.CollFeeStructures, centerID, where)
}

func (repo feeRepository) UpdateStructure(ctx context.Context, s fee.Structure) (fee.Structure, error) {
	if err := repo.store.Replace(ctx, core.CollFeeStructures, s.ID, s); err != nil {
		return fee.Structure{}, trapNoDocErr(err, fee.ErrStructureNotFound, "updating fee structure")
	}
	return s, nil
}

func (repo feeRepository) DeleteStructure(ctx context.Context, centerID, id string) error {
	return deleteScoped(ctx, repo.store, core.CollFeeStructures, centerID, id, fee.ErrStructureNotFound)
}

// stored drops the fields derived at read time.
func stored(f fee.StudentFee) fee.StudentFee {
	f.Overdue = false
	return f
}

func (repo feeRepository) GetFee(ctx context.Context, centerID, id string) (fee.StudentFee, error) {
	return getScoped(ctx, repo.store, core.CollStudentFees, centerID, id, fee.ErrNotFound, func(f fee.StudentFee) string {
		return f.CenterID
	})
}

func (repo feeRepository) QueryFees(ctx context.Context, centerID string, where core.Filter) ([]fee.StudentFee, error) {
	return findScoped[fee.StudentFee](ctx, repo.store, core.CollStudentFees, centerID, where)
}

func (repo feeRepository) CreateFees(ctx context.Context, fees []fee.StudentFee, batchSize int) (int, error) {
	ops := insertOps(core.CollStudentFees, len(fees), func(i int) (string, interface{}) {
		return fees[i].ID, stored(fees[i])
	})

	var existing int
	for _, chunk := range core.ChunkOps(ops, batchSize) {
		err := repo.store.WriteBatch(ctx, chunk)
		if err == nil {
			continue
		}
		if errors.Cause(err) != core.ErrDuplicateDocument {
			return existing, errors.Wrap(err, "inserting fees")
		}

		// another run inserted some of these fees: insert the chunk fee by fee
		for _, op := range chunk {
			dup, err := repo.insertFee(ctx, op.Doc.(fee.StudentFee))
			if err != nil {
				return existing, errors.Wrap(err, "inserting fee")
			}
			if dup {
				existing++
			}
		}
	}
	return existing, nil
}

// insertFee inserts f and reports whether it had already been created by another run.
// Fees are told apart by their RunID.
func (repo feeRepository) insertFee(ctx context.Context, f fee.StudentFee) (bool, error) {
	err := repo.store.Insert(ctx, core.CollStudentFees, f.ID, f)
	if errors.Cause(err) != core.ErrDuplicateDocument {
		return false, err
	}

	// the failed batch may have written f before reaching the collision
	var got fee.StudentFee
	if err = repo.store.Get(ctx, core.CollStudentFees, f.ID, &got); err != nil {
		return false, err
	}
	return got.RunID != f.RunID, nil
}

func (repo feeRepository) UpdateFee(ctx context.Context, f fee.StudentFee) (fee.StudentFee, error) {
	if err := repo.store.Replace(ctx, core.CollStudentFees, f.ID, stored(f)); err != nil {
		return fee.StudentFee{}, trapNoDocErr(err, fee.ErrNotFound, "updating fee")
	}
	return f, nil
}
