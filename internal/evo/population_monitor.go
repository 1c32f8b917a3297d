package evo

import (
	"context"
	"fmt"
	"log/slog"

	"valleycross/internal/logging"
	"valleycross/internal/model"
	"valleycross/internal/sampling"
)

// FixationThreshold is the triple-mutant frequency above which the run
// counts as absorbed.
const FixationThreshold = 0.5

type MonitorConfig struct {
	Params             model.Params
	Operator           *Operator
	Sampler            *sampling.Sampler
	Sink               Sink
	Logger             *slog.Logger
	FrequencyTolerance float64
}

type RunResult struct {
	Outcome         model.Outcome
	Generations     uint64
	FinalGeneration uint64
	FinalCounts     model.Counts
	Snapshots       int
	WarningCounts   map[model.WarningKind]int
}

// PopulationMonitor drives one run from an all-wild-type population until
// the triple mutant fixes or the generation cap is reached.
type PopulationMonitor struct {
	cfg MonitorConfig
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Params.PopulationSize == 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Params.SnapshotInterval == 0 {
		return nil, fmt.Errorf("snapshot interval must be > 0")
	}
	if cfg.Operator == nil {
		return nil, fmt.Errorf("operator is required")
	}
	if cfg.Sampler == nil {
		return nil, fmt.Errorf("sampler is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = discardSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.FrequencyTolerance <= 0 {
		cfg.FrequencyTolerance = DefaultFrequencyTolerance
	}
	return &PopulationMonitor{cfg: cfg}, nil
}

func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	n := m.cfg.Params.PopulationSize
	interval := m.cfg.Params.SnapshotInterval
	logger := m.cfg.Logger

	freq := model.Frequencies{model.WildType: 1}
	counts := model.InitialCounts(n)
	result := RunResult{
		Outcome:       model.OutcomeGenerationCap,
		WarningCounts: map[model.WarningKind]int{},
	}

	logger.Info("run started",
		"population", n,
		"mutation_rate", m.cfg.Params.MutationRate,
		"recombination_rate", m.cfg.Params.RecombinationRate,
		"selection_advantage", m.cfg.Params.SelectionAdvantage,
		"max_generations", m.cfg.Params.MaxGenerations,
		"seed", m.cfg.Params.Seed,
	)

	for gen := uint64(0); gen < m.cfg.Params.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		freq = m.cfg.Operator.Advance(freq)
		if !CheckFrequencies(freq, m.cfg.FrequencyTolerance) {
			if err := m.warn(ctx, &result, model.Warning{
				Kind:        model.WarningImproperFrequencies,
				Generation:  gen,
				Message:     fmt.Sprintf("Warning: improper genotype frequencies at t=%d: %s", gen, freq),
				Previous:    counts,
				Frequencies: freq,
			}); err != nil {
				return RunResult{}, err
			}
		}

		previous := counts
		next, outcome, err := m.cfg.Sampler.Sample(n, freq)
		if err != nil {
			return RunResult{}, fmt.Errorf("sample generation %d: %w", gen, err)
		}
		counts = next
		if logger.Enabled(ctx, logging.LevelTrace) {
			logger.Log(ctx, logging.LevelTrace, "generation",
				"generation", gen,
				"path", outcome.Path.String(),
				"counts", counts.String(),
			)
		}
		if outcome.Overflow > 0 {
			if err := m.warn(ctx, &result, model.Warning{
				Kind:        model.WarningSamplerOverflow,
				Generation:  gen,
				Message:     fmt.Sprintf("Warning: rare genotype draws exceeded the population by %d at t=%d and were clamped.", outcome.Overflow, gen),
				Previous:    previous,
				Frequencies: freq,
				Current:     counts,
			}); err != nil {
				return RunResult{}, err
			}
		}
		if counts[model.TripleMutant] > 0 && previous.MultiMutants() == 0 {
			if err := m.warn(ctx, &result, model.Warning{
				Kind:        model.WarningTriplesFromNothing,
				Generation:  gen,
				Message:     fmt.Sprintf("Warning! Triples appear out of nothing at t=%d.", gen),
				Previous:    previous,
				Frequencies: freq,
				Current:     counts,
			}); err != nil {
				return RunResult{}, err
			}
		}

		freq = counts.Frequencies(n)
		result.Generations = gen + 1
		result.FinalGeneration = gen
		result.FinalCounts = counts

		if freq[model.TripleMutant] > FixationThreshold {
			if err := m.emit(ctx, &result, model.Snapshot{Generation: gen, Counts: counts, Absorbed: true}); err != nil {
				return RunResult{}, err
			}
			result.Outcome = model.OutcomeAbsorbed
			logger.Info("triple mutant fixed", "generation", gen, "counts", counts.String())
			return result, nil
		}

		if gen%interval == 0 {
			if err := m.emit(ctx, &result, model.Snapshot{Generation: gen, Counts: counts}); err != nil {
				return RunResult{}, err
			}
		}
	}

	logger.Info("generation cap reached", "generations", result.Generations, "counts", result.FinalCounts.String())
	return result, nil
}

func (m *PopulationMonitor) emit(ctx context.Context, result *RunResult, snapshot model.Snapshot) error {
	m.cfg.Logger.Debug("snapshot", "generation", snapshot.Generation, "counts", snapshot.Counts.String())
	if err := m.cfg.Sink.Snapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("record snapshot %d: %w", snapshot.Generation, err)
	}
	result.Snapshots++
	return nil
}

func (m *PopulationMonitor) warn(ctx context.Context, result *RunResult, warning model.Warning) error {
	m.cfg.Logger.Warn(warning.Message,
		"kind", warning.Kind,
		"generation", warning.Generation,
		"previous", warning.Previous.String(),
		"frequencies", warning.Frequencies.String(),
		"current", warning.Current.String(),
	)
	if err := m.cfg.Sink.Warning(ctx, warning); err != nil {
		return fmt.Errorf("record warning at generation %d: %w", warning.Generation, err)
	}
	result.WarningCounts[warning.Kind]++
	return nil
}
