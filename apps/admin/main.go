package main

import (
	"context"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/cache"
	"github.com/trezcool/darasa/storage/database"
	"github.com/trezcool/darasa/storage/docstore"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stdout, logsvc.ComponentAdmin, conf)

	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	// writes go through the cache so that the API does not serve stale documents
	var c core.Cache
	if conf.Cache.Enabled {
		rc, err := cache.NewRedis(ctx, conf)
		errAndDie(logger, err)
		defer rc.Close()
		c = rc
	}

	// set up DB
	store, err := docstore.Open(ctx, conf, c, logger)
	errAndDie(logger, err)
	defer store.Close(context.Background())

	var db *sqlx.DB
	if conf.Database.Engine == docstore.EnginePostgres {
		db, err = database.Open(ctx, conf)
		errAndDie(logger, err)
		defer db.Close()
	}

	// start CLI
	cli, err := newCommandLine(conf, logger, validate, store, db, emailsvc.NewConsoleService(os.Stdout, conf, logger))
	errAndDie(logger, err)
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
