package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/center"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(io.Discard, logsvc.ComponentAdmin, conf)

	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli, err := newCommandLine(conf, logger, validate, inmemstore.New(), nil, emailsvc.NewConsoleServiceMock(conf, logger))
	require.NoError(t, err)

	var out bytes.Buffer
	cli.out = &out
	return cli, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func withPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_help(t *testing.T) {
	cli, _ := setup(t)
	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
		{name: "missing flag", args: []string{"addcenter", "--name", "Alpha"}, wantErrStr: `required flag(s) "code" not set`},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var ran []string
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "not on postgres", args: []string{"migrate", "up"}, wantErr: errNoSQLDatabase},
	})

	cli.db = sqlx.NewDb(sqlDB, "postgres")
	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "fees_index", "sql"}},
	})
	assert.Equal(t, []string{"up", "up-to", "down", "status", "create"}, ran)
}

func Test_commandLine_centersAndUsers(t *testing.T) {
	ctx := context.Background()
	cli, out := setup(t)
	withPassword("Str0ng!pass")

	runCLITests(t, cli, []cliTest{
		{name: "add center", args: []string{"addcenter", "--name", "Alpha Academy", "--code", "Alpha"}},
		{name: "duplicate code", args: []string{"addcenter", "--name", "Other", "--code", "alpha"}, wantErrStr: "code"},
		{name: "add owner", args: []string{"adduser", "--center", "alpha", "--username", "Boss", "--email", "boss@test.cd", "--role", "owner"}},
		{name: "unknown center", args: []string{"adduser", "--center", "beta", "--username", "boss"}, wantErr: nil, wantErrStr: "center not found"},
		{name: "unknown role", args: []string{"adduser", "--center", "alpha", "--username", "boss", "--role", "janitor"}, wantErr: errUnknownRole},
	})

	c, err := cli.centers.GetByCode(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Academy", c.Name)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, c.ID, usr.CenterID)
	assert.Equal(t, "boss", usr.Name)
	assert.Equal(t, []string{user.RoleAdminOwner}, usr.Roles)
	assert.NoError(t, usr.CheckPassword("Str0ng!pass"))

	t.Run("adduser updates existing users", func(t *testing.T) {
		withPassword("An0ther!pass")
		require.NoError(t, cli.run([]string{"admin", "adduser", "--center", "alpha", "--username", "boss@test.cd", "--name", "The Boss"}))

		got, err := cli.usrRepo.GetUserByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, "The Boss", got.Name)
		assert.Equal(t, []string{user.RoleAdmin}, got.Roles)
		assert.NoError(t, got.CheckPassword("An0ther!pass"))
	})

	t.Run("users stay in their center", func(t *testing.T) {
		_, err := cli.centers.Create(ctx, center.NewCenter{Name: "Beta", Code: "beta"})
		require.NoError(t, err)
		err = cli.run([]string{"admin", "adduser", "--center", "beta", "--username", "boss"})
		assert.Equal(t, errOtherCenter, err)
	})

	t.Run("list", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "centers"}))
		assert.Contains(t, out.String(), "alpha")
		assert.Contains(t, out.String(), "Alpha Academy")
		assert.Contains(t, out.String(), "beta")
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	ctx := context.Background()
	cli, _ := setup(t)
	withPassword("Str0ng!pass")
	_, err := cli.centers.Create(ctx, center.NewCenter{Name: "Alpha", Code: "alpha"})
	require.NoError(t, err)
	usr, err := cli.addUser(ctx, "alpha", "User", "awe", "awe@test.cd", "admin", "mdr")
	require.NoError(t, err)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errNoPassword},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr == nil && tt.wantErrStr == "" {
				require.NoError(t, err)
				refreshedUsr, err := cli.usrRepo.GetUserByID(ctx, usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
				assert.NoError(t, refreshedUsr.CheckPassword(tt.extra.(extra).pwd))
				return
			}
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_data(t *testing.T) {
	ctx := context.Background()
	cli, out := setup(t)

	require.NoError(t, cli.store.Insert(ctx, core.CollStudentFees, "f1", map[string]interface{}{
		"id": "f1", "period": "03-2024", "amount": 100, "paid_amount": 0,
	}))

	require.NoError(t, cli.run([]string{"admin", "migratedata", "--dry-run"}))
	assert.Contains(t, out.String(), "0001_fee_status_backfill")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "migratedata"}))
	assert.Contains(t, out.String(), "0002_fee_period_format\t1 document(s)")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "migratedata", "--dry-run"}))
	assert.Empty(t, out.String())

	t.Run("generatefees", func(t *testing.T) {
		_, err := cli.centers.Create(ctx, center.NewCenter{Name: "Alpha", Code: "alpha"})
		require.NoError(t, err)

		runCLITests(t, cli, []cliTest{
			{name: "bad period", args: []string{"generatefees", "--period", "2024-13"}, wantErr: core.ErrInvalidPeriod},
			{name: "unknown center", args: []string{"generatefees", "--center", "beta"}, wantErrStr: "center not found"},
		})

		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "generatefees", "--period", "2024-03", "--center", "alpha"}))
		assert.Equal(t, "2024-03: 0 created, 0 skipped, 0 unmatched\n", out.String())

		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "generatefees", "--period", "2024-03"}))
		assert.Equal(t, "2024-03: 0 created, 0 skipped, 0 unmatched\n", out.String())
	})
}
