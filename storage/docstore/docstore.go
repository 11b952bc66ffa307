// Package docstore opens the core.DocStore selected by the configuration.
package docstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/storage/database"
	cachedstore "github.com/trezcool/darasa/storage/docstore/cached"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
	mongostore "github.com/trezcool/darasa/storage/docstore/mongodb"
	pgstore "github.com/trezcool/darasa/storage/docstore/postgres"
)

const (
	EngineMongoDB  = "mongodb"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// Open opens the configured store; postgres databases are created and migrated first.
// When cache is not nil, reads go through it.
func Open(ctx context.Context, conf *core.Config, cache core.Cache, logger core.Logger) (core.DocStore, error) {
	var store core.DocStore

	switch conf.Database.Engine {
	case EngineMongoDB:
		ms, err := mongostore.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = ms.EnsureIndexes(ctx, core.TenantCollections...); err != nil {
			logger.Warn("creating mongodb indexes", err)
		}
		store = ms
	case EnginePostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		store = pgstore.New(db)
	case EngineMemory, "":
		logger.Warn("using the in-memory document store: data is lost on exit")
		store = inmemstore.New()
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
	}

	if cache != nil {
		store = cachedstore.New(store, cache, conf.Cache.TTL, conf.AppName+":", logger)
	}
	return store, nil
}
