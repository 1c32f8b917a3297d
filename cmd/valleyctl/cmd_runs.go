package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"valleycross/pkg/valleycross"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, _, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			sweepID, _ := cmd.Flags().GetString("sweep")
			entries, err := client.Runs(cmd.Context(), valleycross.RunsRequest{Limit: limit, SweepID: sweepID})
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tN\tMU\tR\tS\tSEED\tOUTCOME\tGENERATION\tCREATED")
			for _, e := range entries {
				created := e.CreatedAtUTC
				if t, err := time.Parse(time.RFC3339Nano, e.CreatedAtUTC); err == nil {
					created = humanize.Time(t)
				}
				fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%d\t%s\t%s\t%s\n",
					e.RunID,
					humanize.Comma(int64(e.PopulationSize)),
					e.MutationRate,
					e.RecombinationRate,
					e.SelectionAdvantage,
					e.Seed,
					e.Outcome,
					humanize.Comma(int64(e.FinalGeneration)),
					created,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().String("sweep", "", "Only list runs of this sweep")
	return cmd
}
