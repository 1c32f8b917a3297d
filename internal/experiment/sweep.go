// Package experiment runs independent replicates of one parameter set in
// parallel and summarizes how often, and how fast, the valley is crossed.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"valleycross/internal/model"
	"valleycross/internal/stats"
)

// RunFunc executes one replicate with the given seed. Implementations own
// their sampler, sinks and output files; nothing is shared between calls
// except what the caller closes over.
type RunFunc func(ctx context.Context, replicate int, seed int64) (model.RunSummary, error)

type Config struct {
	Replicates int
	Workers    int
	BaseSeed   int64
	Logger     *slog.Logger
}

type Result struct {
	// Runs is ordered by replicate index, replicate i having seed BaseSeed+i.
	Runs     []model.RunSummary
	Fixation stats.FixationSummary
}

func Sweep(ctx context.Context, cfg Config, run RunFunc) (Result, error) {
	if cfg.Replicates <= 0 {
		return Result{}, fmt.Errorf("replicates must be > 0")
	}
	if cfg.Workers <= 0 {
		return Result{}, fmt.Errorf("workers must be > 0")
	}
	if run == nil {
		return Result{}, fmt.Errorf("run function is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	runs := make([]model.RunSummary, cfg.Replicates)
	var (
		mu       sync.Mutex
		finished int
		absorbed int
	)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(cfg.Workers).WithCancelOnError().WithFirstError()
	for i := 0; i < cfg.Replicates; i++ {
		seed := cfg.BaseSeed + int64(i)
		p.Go(func(ctx context.Context) error {
			summary, err := run(ctx, i, seed)
			if err != nil {
				return fmt.Errorf("replicate %d (seed %d): %w", i, seed, err)
			}
			runs[i] = summary

			mu.Lock()
			finished++
			if summary.Absorbed() {
				absorbed++
			}
			logger.Info("replicate finished",
				"replicate", i,
				"seed", seed,
				"run_id", summary.RunID,
				"outcome", summary.Outcome,
				"final_generation", summary.FinalGeneration,
				"progress", fmt.Sprintf("%d/%d", finished, cfg.Replicates),
				"absorbed", absorbed,
			)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Runs:     runs,
		Fixation: stats.SummarizeFixation(runs),
	}, nil
}
