package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"valleycross/internal/sampling"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Sampler.Epsilon != sampling.DefaultEpsilon {
		t.Fatalf("expected default epsilon, got %g", cfg.Sampler.Epsilon)
	}
	if cfg.Simulation.FrequencyTolerance != 1e-6 {
		t.Fatalf("expected default tolerance 1e-6, got %g", cfg.Simulation.FrequencyTolerance)
	}
	if cfg.Simulation.Seed != nil {
		t.Fatal("expected no default seed")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valleycross.yaml")
	content := `
simulation:
  population_size: 1e4
  mutation_rate: 0.00001
  recombination_rate: 0.5
  selection_advantage: 0.1
  max_generations: 200
  snapshot_interval: 10
  seed: 42
sampler:
  overflow_policy: redraw
  max_redraws: 4
store:
  kind: sqlite
  db_path: runs.db
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Simulation.PopulationSize != 10000 || cfg.Simulation.RecombinationRate != 0.5 {
		t.Fatalf("unexpected simulation section: %+v", cfg.Simulation)
	}
	if cfg.Simulation.Seed == nil || *cfg.Simulation.Seed != 42 {
		t.Fatalf("expected seed 42, got %v", cfg.Simulation.Seed)
	}
	if cfg.Sampler.OverflowPolicy != "redraw" || cfg.Sampler.MaxRedraws != 4 {
		t.Fatalf("unexpected sampler section: %+v", cfg.Sampler)
	}
	if cfg.Sampler.Epsilon != sampling.DefaultEpsilon {
		t.Fatalf("expected unset epsilon to keep its default, got %g", cfg.Sampler.Epsilon)
	}
	if cfg.Store.Kind != "sqlite" || cfg.Store.DBPath != "runs.db" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected store/logging: %+v %+v", cfg.Store, cfg.Logging)
	}

	params := cfg.Params()
	if params.PopulationSize != 10000 || params.MaxGenerations != 200 || params.SnapshotInterval != 10 {
		t.Fatalf("unexpected params: %+v", params)
	}
	if params.Seed != 42 || !params.SeedProvided {
		t.Fatalf("expected provided seed 42, got %+v", params)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("simulation: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("VALLEYCROSS_LOG_LEVEL", "trace")
	t.Setenv("VALLEYCROSS_STORE", "sqlite")
	t.Setenv("VALLEYCROSS_DB_PATH", "/tmp/x.db")
	t.Setenv("VALLEYCROSS_OUT", "out/run_")
	t.Setenv("VALLEYCROSS_SEED", "17")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "trace" || cfg.Store.Kind != "sqlite" || cfg.Store.DBPath != "/tmp/x.db" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Output.Prefix != "out/run_" {
		t.Fatalf("expected output prefix override, got %q", cfg.Output.Prefix)
	}
	if cfg.Simulation.Seed == nil || *cfg.Simulation.Seed != 17 {
		t.Fatalf("expected seed override, got %v", cfg.Simulation.Seed)
	}
}

func TestLoadRejectsInvalidEnvSeed(t *testing.T) {
	t.Setenv("VALLEYCROSS_SEED", "4x2")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "VALLEYCROSS_SEED") {
		t.Fatalf("expected seed parse error, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero population", func(c *Config) { c.Simulation.PopulationSize = 0 }},
		{"negative mutation", func(c *Config) { c.Simulation.MutationRate = -1e-5 }},
		{"mutation above a third", func(c *Config) { c.Simulation.MutationRate = 0.4 }},
		{"recombination above one", func(c *Config) { c.Simulation.RecombinationRate = 1.5 }},
		{"negative selection", func(c *Config) { c.Simulation.SelectionAdvantage = -0.1 }},
		{"negative generations", func(c *Config) { c.Simulation.MaxGenerations = -1 }},
		{"zero interval", func(c *Config) { c.Simulation.SnapshotInterval = 0 }},
		{"zero tolerance", func(c *Config) { c.Simulation.FrequencyTolerance = 0 }},
		{"zero epsilon", func(c *Config) { c.Sampler.Epsilon = 0 }},
		{"unknown overflow policy", func(c *Config) { c.Sampler.OverflowPolicy = "ignore" }},
		{"unknown store", func(c *Config) { c.Store.Kind = "postgres" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"zero replicates", func(c *Config) { c.Sweep.Replicates = 0 }},
		{"zero workers", func(c *Config) { c.Sweep.Workers = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParamsDrawsSeedWhenUnset(t *testing.T) {
	params := Default().Params()
	if params.SeedProvided {
		t.Fatal("expected seed to be marked as drawn")
	}
	if params.Seed < 0 {
		t.Fatalf("expected non-negative drawn seed, got %d", params.Seed)
	}
}

func TestSamplerConfig(t *testing.T) {
	cfg := Default()
	cfg.Sampler.OverflowPolicy = "fail"
	sc := cfg.SamplerConfig(3)
	if sc.Source == nil || sc.Overflow != sampling.OverflowFail || sc.Epsilon != sampling.DefaultEpsilon {
		t.Fatalf("unexpected sampler config: %+v", sc)
	}
	if _, err := sampling.NewSampler(sc); err != nil {
		t.Fatalf("new sampler: %v", err)
	}
}
