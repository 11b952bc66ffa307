package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/fee"
)

func (cli *commandLine) generateFeesCommand() *cobra.Command {
	var period, centerCode string
	cmd := &cobra.Command{
		Use:   "generatefees",
		Short: "Generate the monthly fees of a period for one or every active center",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if period == "" {
				period = core.CurrentPeriod(time.Now())
			}
			if _, err := core.ParsePeriod(period); err != nil {
				return err
			}

			var reports []fee.GenerateReport
			if centerCode != "" {
				c, err := cli.centers.GetByCode(cmd.Context(), centerCode)
				if err != nil {
					return errors.Wrap(err, "getting center")
				}
				report, err := cli.fees.GenerateMonthly(cmd.Context(), c.ID, period)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			} else {
				var err error
				if reports, err = cli.sched.GenerateFees(cmd.Context(), period); err != nil {
					return err
				}
			}

			var total fee.GenerateReport
			for _, r := range reports {
				total.Created += r.Created
				total.Skipped += r.Skipped
				total.Unmatched += r.Unmatched
			}
			fmt.Fprintf(cli.out, "%s: %d created, %d skipped, %d unmatched\n", period, total.Created, total.Skipped, total.Unmatched)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "The period (YYYY-MM); defaults to the current month")
	cmd.Flags().StringVar(&centerCode, "center", "", "Only generate the fees of this center")
	return cmd
}
