package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/enrollment"
	"github.com/kbukum/speakerid/identity"
)

func newEnrollCmd(configPath *string) *cobra.Command {
	var f enrollFlags
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Build the enrolled set and list who would be recognized",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), cfg)
			return runEnroll(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func runEnroll(ctx context.Context, out io.Writer, cfg *Config) error {
	app, err := newApplication(cfg)
	if err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		set, report, err := app.Service.Enrollment(ctx)
		if err != nil {
			return err
		}
		return printEnrollment(out, set, report, app.Directory)
	})
}

func printEnrollment(w io.Writer, set *enrollment.Set, report enrollment.Report, dir *identity.Directory) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tCLIPS\tSECONDS\tSOURCES")
	for _, id := range set.Identities() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%s\n",
			id.Key, dir.DisplayName(id.Key), id.ClipCount, id.Seconds, strings.Join(id.Sources, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d identities from %d clips in %s (%d too short, %d filtered, %d failed, %d ignored)\n",
		set.Len(), report.Count(enrollment.OutcomeUsed), report.Dir,
		report.Count(enrollment.OutcomeTooShort), report.Count(enrollment.OutcomeFiltered),
		report.Count(enrollment.OutcomeFailed), report.Count(enrollment.OutcomeIgnored))
	return err
}
