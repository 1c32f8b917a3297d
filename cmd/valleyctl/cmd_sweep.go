package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"valleycross/pkg/valleycross"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep N mut r s",
		Short: "Run independent replicates and summarize crossing times",
		Long: `Run independent replicates of one parameter set in parallel. Replicate i
uses seed+i. Each replicate writes <out>rep<i>_trajectory.txt and friends;
the fixation summary is written to <artifacts>/<sweep-id>/sweep.json.`,
		Example: `  valleyctl sweep 1000 1e-4 0.5 0.1 --replicates 50 --workers 8 --seed 1 --tmax 1e5`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("replicates") {
				cfg.Sweep.Replicates, _ = flags.GetInt("replicates")
			}
			if flags.Changed("workers") {
				cfg.Sweep.Workers, _ = flags.GetInt("workers")
			}
			if err := applySimulationArgs(cmd, cfg, args); err != nil {
				return err
			}
			client, _, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Sweep(cmd.Context(), valleycross.SweepRequest{
				Run:        valleycross.RunRequestFromConfig(cfg),
				Replicates: cfg.Sweep.Replicates,
				Workers:    cfg.Sweep.Workers,
			})
			if err != nil {
				return err
			}
			if cfg.Output.MetricsFile != "" {
				if err := client.WriteMetrics(cfg.Output.MetricsFile); err != nil {
					return err
				}
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fix := summary.Fixation
			fmt.Fprintf(out, "sweep %s\n", summary.SweepID)
			fmt.Fprintf(out, "  replicates: %d, absorbed: %d (p=%.3f)\n", fix.Replicates, fix.Absorbed, fix.FixationProbability)
			if fix.Absorbed > 0 {
				fmt.Fprintf(out, "  crossing time: mean %s, sd %s, median %s, 10%%-90%% [%s, %s]\n",
					humanize.CommafWithDigits(fix.MeanGeneration, 1),
					humanize.CommafWithDigits(fix.StdGeneration, 1),
					humanize.CommafWithDigits(fix.MedianGeneration, 0),
					humanize.CommafWithDigits(fix.Q10Generation, 0),
					humanize.CommafWithDigits(fix.Q90Generation, 0),
				)
			}
			fmt.Fprintf(out, "  report: %s\n", summary.ReportPath)
			return nil
		},
	}
	addSimulationFlags(cmd)
	cmd.Flags().Int("replicates", 0, "Number of replicates (default 10)")
	cmd.Flags().Int("workers", 0, "Replicates run concurrently (default 4)")
	return cmd
}
