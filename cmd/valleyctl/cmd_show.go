package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"valleycross/internal/stats"
	"valleycross/pkg/valleycross"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a run summary with its snapshots and warnings",
		Args:  cobra.MaximumNArgs(1),
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

			req := valleycross.ShowRequest{}
			req.Latest, _ = cmd.Flags().GetBool("latest")
			if len(args) == 1 {
				req.RunID = args[0]
			}
			detail, err := client.Show(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, detail)
			}

			out := cmd.OutOrStdout()
			printRunSummary(out, detail.Summary)
			if len(detail.Snapshots) > 0 {
				fmt.Fprintln(out, "trajectory:")
				for _, snap := range detail.Snapshots {
					fmt.Fprintf(out, "  %s\n", stats.FormatSnapshot(snap))
				}
			}
			for _, w := range detail.Warnings {
				fmt.Fprint(out, stats.FormatWarning(w))
			}
			return nil
		},
	}
	cmd.Flags().Bool("latest", false, "Show the most recent run")
	return cmd
}
