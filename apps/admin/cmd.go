package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/center"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
	"github.com/trezcool/darasa/core/user"
	metricsvc "github.com/trezcool/darasa/services/metrics"
	"github.com/trezcool/darasa/services/scheduler"
	"github.com/trezcool/darasa/storage/database"
	"github.com/trezcool/darasa/storage/docrepo"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp          = errors.New("help provided")
	errNoPassword    = errors.New("a password is required")
	errNoSQLDatabase = errors.New("migrate only applies to the postgres engine")
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
	store    core.DocStore
	db       *sqlx.DB // postgres engine only
	out      io.Writer

	usrRepo user.Repository
	centers *center.Service
	fees    *fee.Service
	sched   *scheduler.Scheduler
}

func newCommandLine(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	store core.DocStore,
	db *sqlx.DB,
	mailSvc core.EmailService,
) (*commandLine, error) {
	usrRepo := docrepo.NewUserRepository(store)
	users := user.NewService(usrRepo, mailSvc, conf)
	students := student.NewService(docrepo.NewStudentRepository(store), users)
	subjects := subject.NewService(docrepo.NewSubjectRepository(store))
	enrollments := enrollment.NewService(docrepo.NewEnrollmentRepository(store), students, subjects)

	cli := &commandLine{
		conf:     conf,
		logger:   logger,
		validate: validate,
		store:    store,
		db:       db,
		out:      os.Stdout,
		usrRepo:  usrRepo,
		centers:  center.NewService(docrepo.NewCenterRepository(store)),
		fees:     fee.NewService(docrepo.NewFeeRepository(store), enrollments, students, mailSvc, conf),
	}

	sched, err := scheduler.New(conf, cli.centers, cli.fees, metricsvc.New(), logger)
	if err != nil {
		return nil, err
	}
	cli.sched = sched
	return cli, nil
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCommand()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Darasa administration commands",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)

	root.AddCommand(
		cli.addCenterCommand(),
		cli.listCentersCommand(),
		cli.addUserCommand(),
		cli.resetPasswordCommand(),
		cli.migrateCommand(),
		cli.migrateDataCommand(),
		cli.generateFeesCommand(),
	)
	return root
}

// readPassword prompts for a password on the terminal.
func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errNoPassword
	}
	return string(pwd), nil
}
