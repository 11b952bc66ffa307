package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trezcool/darasa/core/center"
)

func (cli *commandLine) addCenterCommand() *cobra.Command {
	var nc center.NewCenter
	cmd := &cobra.Command{
		Use:   "addcenter",
		Short: "Create a coaching center",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.addCenter(cmd.Context(), nc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "center %q created: %s\n", c.Code, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&nc.Name, "name", "", "The center's name")
	cmd.Flags().StringVar(&nc.Code, "code", "", "The center's unique code (letters, digits and _)")
	cmd.Flags().StringVar(&nc.Email, "email", "", "The center's contact email")
	cmd.Flags().StringVar(&nc.Phone, "phone", "", "The center's phone number")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (cli *commandLine) addCenter(ctx context.Context, nc center.NewCenter) (center.Center, error) {
	if err := nc.Validate(ctx, cli.validate, cli.centers); err != nil {
		return center.Center{}, err
	}
	return cli.centers.Create(ctx, nc)
}

func (cli *commandLine) listCentersCommand() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "centers",
		Short: "List the coaching centers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			centers, err := cli.centers.List(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tACTIVE\tID")
			for _, c := range centers {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.Code, c.Name, c.IsActive, c.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active centers")
	return cmd
}
