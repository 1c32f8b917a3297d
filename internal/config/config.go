// Package config provides configuration loading for valleycross runs.
// Values come from defaults, then an optional YAML file, then environment
// variables; command-line flags are applied last by the caller.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"valleycross/internal/evo"
	"valleycross/internal/logging"
	"valleycross/internal/model"
	"valleycross/internal/sampling"
	"valleycross/internal/storage"
)

type Config struct {
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Sampler    SamplerConfig    `json:"sampler" yaml:"sampler"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep"`
}

// SimulationConfig holds the population-genetic parameters of a run.
type SimulationConfig struct {
	// PopulationSize and MaxGenerations accept scientific notation (1e8) and
	// are rounded to the nearest unsigned integer.
	PopulationSize     float64 `json:"population_size" yaml:"population_size"`
	MutationRate       float64 `json:"mutation_rate" yaml:"mutation_rate"`
	RecombinationRate  float64 `json:"recombination_rate" yaml:"recombination_rate"`
	SelectionAdvantage float64 `json:"selection_advantage" yaml:"selection_advantage"`
	MaxGenerations     float64 `json:"max_generations" yaml:"max_generations"`
	SnapshotInterval   int     `json:"snapshot_interval" yaml:"snapshot_interval"`

	// Seed is optional; when unset every run draws a random seed.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	FrequencyTolerance float64 `json:"frequency_tolerance" yaml:"frequency_tolerance"`
}

type SamplerConfig struct {
	Epsilon        float64 `json:"epsilon" yaml:"epsilon"`
	OverflowPolicy string  `json:"overflow_policy" yaml:"overflow_policy"`
	MaxRedraws     int     `json:"max_redraws" yaml:"max_redraws"`
}

type OutputConfig struct {
	// Prefix is prepended verbatim to params.txt, trajectory.txt and
	// warnings.log, so "out/run1_" and "out/" both work.
	Prefix       string `json:"prefix" yaml:"prefix"`
	ArtifactsDir string `json:"artifacts_dir" yaml:"artifacts_dir"`
	Plot         bool   `json:"plot" yaml:"plot"`
	MetricsFile  string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

type StoreConfig struct {
	Kind   string `json:"kind" yaml:"kind"`
	DBPath string `json:"db_path" yaml:"db_path"`
}

type LoggingConfig struct {
	// Level is "info" (default), "debug" or "trace".
	Level string `json:"level" yaml:"level"`
}

type SweepConfig struct {
	Replicates int `json:"replicates" yaml:"replicates"`
	Workers    int `json:"workers" yaml:"workers"`
}

func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			PopulationSize:     1000,
			MutationRate:       1e-5,
			RecombinationRate:  0,
			SelectionAdvantage: 0.1,
			MaxGenerations:     1e8,
			SnapshotInterval:   10,
			FrequencyTolerance: evo.DefaultFrequencyTolerance,
		},
		Sampler: SamplerConfig{
			Epsilon:        sampling.DefaultEpsilon,
			OverflowPolicy: string(sampling.OverflowClamp),
			MaxRedraws:     sampling.DefaultMaxRedraws,
		},
		Output: OutputConfig{
			Prefix:       "./",
			ArtifactsDir: "runs",
		},
		Store: StoreConfig{
			Kind:   storage.KindMemory,
			DBPath: "valleycross.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Sweep: SweepConfig{
			Replicates: 10,
			Workers:    4,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileConfig
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the simulation cannot run.
func (c *Config) Validate() error {
	sim := c.Simulation
	if math.IsNaN(sim.PopulationSize) || math.Round(sim.PopulationSize) < 1 {
		return fmt.Errorf("population_size must be >= 1, got %g", sim.PopulationSize)
	}
	if sim.MutationRate < 0 || 3*sim.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be in [0, 1/3], got %g", sim.MutationRate)
	}
	if sim.RecombinationRate < 0 || sim.RecombinationRate > 1 {
		return fmt.Errorf("recombination_rate must be in [0, 1], got %g", sim.RecombinationRate)
	}
	if sim.SelectionAdvantage < 0 {
		return fmt.Errorf("selection_advantage must be >= 0, got %g", sim.SelectionAdvantage)
	}
	if math.IsNaN(sim.MaxGenerations) || sim.MaxGenerations < 0 {
		return fmt.Errorf("max_generations must be >= 0, got %g", sim.MaxGenerations)
	}
	if sim.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot_interval must be > 0, got %d", sim.SnapshotInterval)
	}
	if sim.FrequencyTolerance <= 0 {
		return fmt.Errorf("frequency_tolerance must be > 0, got %g", sim.FrequencyTolerance)
	}

	if c.Sampler.Epsilon <= 0 || c.Sampler.Epsilon >= 1 {
		return fmt.Errorf("sampler epsilon must be in (0, 1), got %g", c.Sampler.Epsilon)
	}
	if _, err := sampling.ParseOverflowPolicy(c.Sampler.OverflowPolicy); err != nil {
		return err
	}
	if c.Sampler.MaxRedraws < 0 {
		return fmt.Errorf("max_redraws must be >= 0, got %d", c.Sampler.MaxRedraws)
	}

	validStores := map[string]bool{"": true, storage.KindMemory: true, storage.KindSQLite: true}
	if !validStores[c.Store.Kind] {
		return fmt.Errorf("invalid store kind: %s (valid: memory, sqlite)", c.Store.Kind)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	if c.Sweep.Replicates <= 0 {
		return fmt.Errorf("sweep replicates must be > 0, got %d", c.Sweep.Replicates)
	}
	if c.Sweep.Workers <= 0 {
		return fmt.Errorf("sweep workers must be > 0, got %d", c.Sweep.Workers)
	}
	return nil
}

// Params converts the simulation section into run parameters, drawing a
// random seed when none is configured.
func (c *Config) Params() model.Params {
	sim := c.Simulation
	params := model.Params{
		PopulationSize:     uint64(math.Round(sim.PopulationSize)),
		MutationRate:       sim.MutationRate,
		RecombinationRate:  sim.RecombinationRate,
		SelectionAdvantage: sim.SelectionAdvantage,
		MaxGenerations:     uint64(math.Round(sim.MaxGenerations)),
		SnapshotInterval:   uint64(sim.SnapshotInterval),
	}
	if sim.Seed != nil {
		params.Seed = *sim.Seed
		params.SeedProvided = true
	} else {
		params.Seed = sampling.RandomSeed()
	}
	return params
}

func (c *Config) SamplerConfig(seed int64) sampling.Config {
	return sampling.Config{
		Source:     sampling.NewSource(seed),
		Epsilon:    c.Sampler.Epsilon,
		Overflow:   sampling.OverflowPolicy(c.Sampler.OverflowPolicy),
		MaxRedraws: c.Sampler.MaxRedraws,
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("VALLEYCROSS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VALLEYCROSS_STORE"); v != "" {
		cfg.Store.Kind = v
	}
	if v := os.Getenv("VALLEYCROSS_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("VALLEYCROSS_OUT"); v != "" {
		cfg.Output.Prefix = v
	}
	if v := os.Getenv("VALLEYCROSS_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid VALLEYCROSS_SEED %q: %w", v, err)
		}
		cfg.Simulation.Seed = &seed
	}
	return nil
}
