package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"valleycross/internal/model"
	"valleycross/pkg/valleycross"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run N mut r s",
		Short: "Simulate one population until the triple mutant fixes",
		Long: `Simulate one population of N individuals with per-locus mutation rate mut,
recombination rate r and triple-mutant selective advantage s.

Writes <out>params.txt, <out>trajectory.txt and <out>warnings.log, and records
the run summary under the artifacts directory.`,
		Example: `  valleyctl run 1e4 1e-5 0.5 0.1 --tmax 1e5 --tstep 100 --seed 42
  valleyctl run 1000 1e-4 0 0.1 --out results/run1_ --plot`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applySimulationArgs(cmd, cfg, args); err != nil {
				return err
			}
			client, logger, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), valleycross.RunRequestFromConfig(cfg))
			if err != nil {
				return err
			}
			if cfg.Output.MetricsFile != "" {
				if err := client.WriteMetrics(cfg.Output.MetricsFile); err != nil {
					return err
				}
				logger.Debug("metrics written", "path", cfg.Output.MetricsFile)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			printRunSummary(cmd.OutOrStdout(), summary.RunSummary)
			fmt.Fprintf(cmd.OutOrStdout(), "artifacts: %s\n", summary.ArtifactsDir)
			if summary.PlotPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "plot:      %s\n", summary.PlotPath)
			}
			return nil
		},
	}
	addSimulationFlags(cmd)
	return cmd
}

func printRunSummary(w io.Writer, s model.RunSummary) {
	p := s.Params
	fmt.Fprintf(w, "run %s\n", s.RunID)
	fmt.Fprintf(w, "  N=%s mu=%g r=%g s=%g seed=%d\n",
		humanize.Comma(int64(p.PopulationSize)), p.MutationRate, p.RecombinationRate, p.SelectionAdvantage, p.Seed)
	switch s.Outcome {
	case model.OutcomeAbsorbed:
		fmt.Fprintf(w, "  triple mutant fixed at generation %s\n", humanize.Comma(int64(s.FinalGeneration)))
	default:
		fmt.Fprintf(w, "  generation cap reached after %s generations\n", humanize.Comma(int64(p.MaxGenerations)))
	}
	fmt.Fprintf(w, "  final counts: %s\n", s.FinalCounts)
	fmt.Fprintf(w, "  snapshots: %d, elapsed: %s\n", s.Snapshots, time.Duration(s.ElapsedMS)*time.Millisecond)
	kinds := make([]string, 0, len(s.WarningCounts))
	for kind := range s.WarningCounts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  warnings %s: %d\n", kind, s.WarningCounts[model.WarningKind(kind)])
	}
}
