package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"valleycross/internal/config"
	"valleycross/internal/logging"
	"valleycross/pkg/valleycross"
)

// loadConfig resolves defaults, the config file, environment and the global
// flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("store") {
		cfg.Store.Kind, _ = flags.GetString("store")
	}
	if flags.Changed("db-path") {
		cfg.Store.DBPath, _ = flags.GetString("db-path")
	}
	if flags.Changed("artifacts-dir") {
		cfg.Output.ArtifactsDir, _ = flags.GetString("artifacts-dir")
	}
	return cfg, nil
}

func newClient(cmd *cobra.Command, cfg *config.Config) (*valleycross.Client, *slog.Logger, error) {
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	client, err := valleycross.New(valleycross.Options{
		StoreKind:    cfg.Store.Kind,
		DBPath:       cfg.Store.DBPath,
		ArtifactsDir: cfg.Output.ArtifactsDir,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return client, logger, nil
}

func addSimulationFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("out", "", "Prefix prepended to params.txt, trajectory.txt and warnings.log")
	flags.Float64("tmax", 0, "Maximum number of generations (default 1e8)")
	flags.Int("tstep", 0, "Record a snapshot every tstep generations (default 10)")
	flags.Int64("seed", 0, "Random seed (drawn at random when unset)")
	flags.Bool("plot", false, "Render the trajectory to a PNG next to the run summary")
	flags.String("metrics-file", "", "Write prometheus metrics to this textfile when done")
	flags.Float64("epsilon", 0, "Probability below which a genotype is drawn by Poisson")
	flags.String("overflow", "", "Rare-draw overflow policy: clamp, redraw or fail")
	flags.Int("max-redraws", 0, "Redraw attempts for the redraw overflow policy")
	flags.Float64("tolerance", 0, "Tolerance for the frequency sanity check")
}

// applySimulationArgs reads "N mut r s" and the simulation flags into cfg.
func applySimulationArgs(cmd *cobra.Command, cfg *config.Config, args []string) error {
	values := make([]float64, len(args))
	names := []string{"N", "mut", "r", "s"}
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", names[i], arg, err)
		}
		values[i] = v
	}
	cfg.Simulation.PopulationSize = values[0]
	cfg.Simulation.MutationRate = values[1]
	cfg.Simulation.RecombinationRate = values[2]
	cfg.Simulation.SelectionAdvantage = values[3]

	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output.Prefix, _ = flags.GetString("out")
	}
	if flags.Changed("tmax") {
		cfg.Simulation.MaxGenerations, _ = flags.GetFloat64("tmax")
	}
	if flags.Changed("tstep") {
		cfg.Simulation.SnapshotInterval, _ = flags.GetInt("tstep")
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetInt64("seed")
		cfg.Simulation.Seed = &seed
	}
	if flags.Changed("plot") {
		cfg.Output.Plot, _ = flags.GetBool("plot")
	}
	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("epsilon") {
		cfg.Sampler.Epsilon, _ = flags.GetFloat64("epsilon")
	}
	if flags.Changed("overflow") {
		cfg.Sampler.OverflowPolicy, _ = flags.GetString("overflow")
	}
	if flags.Changed("max-redraws") {
		cfg.Sampler.MaxRedraws, _ = flags.GetInt("max-redraws")
	}
	if flags.Changed("tolerance") {
		cfg.Simulation.FrequencyTolerance, _ = flags.GetFloat64("tolerance")
	}
	return cfg.Validate()
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func jsonOutput(cmd *cobra.Command) bool {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return jsonOut
}
