package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/darasa/core/migration"
)

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, version, ...) against the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}

func (cli *commandLine) migrateDataCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migratedata",
		Short: "Apply the pending data migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := migration.NewRunner(cli.store, cli.logger)
			if dryRun {
				pending, err := runner.Pending(cmd.Context())
				if err != nil {
					return err
				}
				for _, m := range pending {
					fmt.Fprintf(cli.out, "%s\t%s\n", m.ID, m.Description)
				}
				return nil
			}

			records, err := runner.Run(cmd.Context())
			for _, rec := range records {
				fmt.Fprintf(cli.out, "%s\t%d document(s)\n", rec.ID, rec.Affected)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list the pending migrations")
	return cmd
}
