package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type (
	// Migration is an idempotent data-shape fixup over the document store.
	// Apply returns the number of documents it changed.
	Migration struct {
		ID          string
		Description string
		Apply       func(ctx context.Context, store core.DocStore) (int, error)
	}

	// Record marks a migration as applied.
	Record struct {
		ID          string    `json:"id" bson:"id"`
		CenterID    string    `json:"center_id" bson:"center_id"`
		Description string    `json:"description" bson:"description"`
		AppliedAt   time.Time `json:"applied_at" bson:"applied_at"` // UTC
		Affected    int       `json:"affected" bson:"affected"`
	}

	Runner struct {
		store      core.DocStore
		logger     core.Logger
		migrations []Migration
	}
)

// NewRunner returns a Runner of the given migrations, or of every shipped migration when none is given.
func NewRunner(store core.DocStore, logger core.Logger, migrations ...Migration) *Runner {
	if len(migrations) == 0 {
		migrations = All
	}
	return &Runner{store: store, logger: logger, migrations: migrations}
}

func (r *Runner) applied(ctx context.Context, id string) (bool, error) {
	var rec Record
	switch err := r.store.Get(ctx, core.CollMigrations, id, &rec); err {
	case nil:
		return true, nil
	case core.ErrNoDocument:
		return false, nil
	default:
		return false, err
	}
}

// Pending returns the migrations that have not been applied yet, in order.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	pending := make([]Migration, 0, len(r.migrations))
	for _, m := range r.migrations {
		done, err := r.applied(ctx, m.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "checking migration %s", m.ID)
		}
		if !done {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Run applies the pending migrations in order and records them. It stops at the first failure.
func (r *Runner) Run(ctx context.Context) ([]Record, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(pending))
	for _, m := range pending {
		affected, err := m.Apply(ctx, r.store)
		if err != nil {
			return records, errors.Wrapf(err, "applying migration %s", m.ID)
		}

		rec := Record{
			ID:          m.ID,
			Description: m.Description,
			AppliedAt:   time.Now().UTC(),
			Affected:    affected,
		}
		if err = r.store.Insert(ctx, core.CollMigrations, rec.ID, rec); err != nil {
			return records, errors.Wrapf(err, "recording migration %s", m.ID)
		}
		r.logger.Info(fmt.Sprintf("migration %s applied: %d document(s) changed", m.ID, affected))
		records = append(records, rec)
	}
	return records, nil
}
