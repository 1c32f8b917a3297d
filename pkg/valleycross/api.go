package valleycross

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"valleycross/internal/config"
	"valleycross/internal/evo"
	"valleycross/internal/experiment"
	"valleycross/internal/genotype"
	"valleycross/internal/metrics"
	"valleycross/internal/model"
	"valleycross/internal/sampling"
	"valleycross/internal/stats"
	"valleycross/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "valleycross.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store   storage.Store
	metrics *metrics.Collector
	logger  *slog.Logger

	// persistent stores also keep each run's snapshots and warnings.
	persistent   bool
	artifactsDir string
	exportsDir   string

	initOnce sync.Once
	initErr  error
	// indexMu serializes run index rewrites from concurrent replicates.
	indexMu sync.Mutex
}

type RunRequest struct {
	Params model.Params

	Epsilon            float64
	OverflowPolicy     string
	MaxRedraws         int
	FrequencyTolerance float64

	// OutputPrefix is prepended to params.txt, trajectory.txt and
	// warnings.log. Empty disables the text files.
	OutputPrefix string
	// Plot renders the trajectory once the run ends. Without text files or
	// a persistent store the snapshots are held in memory for the plot.
	Plot    bool
	SweepID string
}

type RunSummary struct {
	model.RunSummary
	ArtifactsDir string
	PlotPath     string
}

type SweepRequest struct {
	Run        RunRequest
	Replicates int
	Workers    int
}

type SweepSummary struct {
	SweepID    string
	Fixation   stats.FixationSummary
	Runs       []stats.RunIndexEntry
	ReportPath string
}

type RunsRequest struct {
	Limit   int
	SweepID string
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type RunDetail struct {
	Summary   model.RunSummary
	Snapshots []model.Snapshot
	Warnings  []model.Warning
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type PlotRequest struct {
	RunID string
	// TrajectoryFile plots a trajectory.txt directly instead of stored
	// snapshots.
	TrajectoryFile string
	Latest         bool
	OutPath        string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.KindMemory
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		persistent:   storage.Persistent(storeKind),
		metrics:      metrics.NewCollector(),
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// RunRequestFromConfig builds a request from a loaded configuration. A seed
// is drawn here when the configuration leaves it unset.
func RunRequestFromConfig(cfg *config.Config) RunRequest {
	return RunRequest{
		Params:             cfg.Params(),
		Epsilon:            cfg.Sampler.Epsilon,
		OverflowPolicy:     cfg.Sampler.OverflowPolicy,
		MaxRedraws:         cfg.Sampler.MaxRedraws,
		FrequencyTolerance: cfg.Simulation.FrequencyTolerance,
		OutputPrefix:       cfg.Output.Prefix,
		Plot:               cfg.Output.Plot,
	}
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	params := req.Params
	landscape, err := genotype.NewLandscape(params.MutationRate, params.SelectionAdvantage)
	if err != nil {
		return RunSummary{}, err
	}
	operator, err := evo.NewOperator(landscape, params.RecombinationRate)
	if err != nil {
		return RunSummary{}, err
	}
	overflow, err := sampling.ParseOverflowPolicy(req.OverflowPolicy)
	if err != nil {
		return RunSummary{}, err
	}
	sampler, err := sampling.NewSampler(sampling.Config{
		Source:     sampling.NewSource(params.Seed),
		Epsilon:    req.Epsilon,
		Overflow:   overflow,
		MaxRedraws: req.MaxRedraws,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	if req.SweepID != "" {
		logger = logger.With("sweep_id", req.SweepID)
	}

	sinks := evo.MultiSink{c.metrics}
	if c.persistent {
		sinks = append(sinks, storage.NewRunSink(c.store, runID))
	}
	var fileSink *stats.FileSink
	if req.OutputPrefix != "" {
		fileSink, err = stats.OpenFileSink(req.OutputPrefix, params)
		if err != nil {
			return RunSummary{}, err
		}
		sinks = append(sinks, fileSink)
	}
	var recorder *evo.Recorder
	if req.Plot && fileSink == nil && !c.persistent {
		recorder = &evo.Recorder{}
		sinks = append(sinks, recorder)
	}

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Params:             params,
		Operator:           operator,
		Sampler:            sampler,
		Sink:               sinks,
		Logger:             logger,
		FrequencyTolerance: req.FrequencyTolerance,
	})
	if err != nil {
		closeFileSink(fileSink)
		return RunSummary{}, err
	}

	started := time.Now()
	result, runErr := monitor.Run(ctx)
	if fileSink != nil {
		if err := fileSink.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close output files: %w", err)
		}
	}
	if runErr != nil {
		return RunSummary{}, runErr
	}

	summary := storage.Stamp(model.RunSummary{
		RunID:           runID,
		SweepID:         req.SweepID,
		Params:          params,
		Outcome:         result.Outcome,
		FinalGeneration: result.FinalGeneration,
		FinalCounts:     result.FinalCounts,
		Snapshots:       result.Snapshots,
		WarningCounts:   result.WarningCounts,
		CreatedAtUTC:    started.UTC().Format(time.RFC3339Nano),
		ElapsedMS:       time.Since(started).Milliseconds(),
	})
	if err := c.store.SaveRun(ctx, summary); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}
	c.metrics.ObserveRun(summary)

	runDir, err := stats.WriteRunSummary(c.artifactsDir, summary)
	if err != nil {
		return RunSummary{}, err
	}
	entry := stats.IndexEntryFromSummary(summary)
	c.indexMu.Lock()
	err = stats.AppendRunIndex(c.artifactsDir, entry)
	c.indexMu.Unlock()
	if err != nil {
		return RunSummary{}, err
	}

	out := RunSummary{RunSummary: summary, ArtifactsDir: filepath.Clean(runDir)}
	if req.Plot {
		var snapshots []model.Snapshot
		switch {
		case recorder != nil:
			snapshots = recorder.Snapshots
		case fileSink != nil:
			snapshots, err = stats.ReadTrajectoryFile(req.OutputPrefix + stats.TrajectoryFile)
		default:
			snapshots, _, err = c.store.GetSnapshots(ctx, runID)
		}
		if err != nil {
			return RunSummary{}, err
		}
		out.PlotPath = filepath.Join(runDir, stats.PlotFile)
		if err := stats.PlotTrajectory(out.PlotPath, plotTitle(params), snapshots); err != nil {
			return RunSummary{}, err
		}
	}
	return out, nil
}

// Sweep runs independent replicates with seeds Params.Seed, Params.Seed+1,
// and so on. Each replicate writes its text files under
// <OutputPrefix>rep<i>_ when a prefix is set.
func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	if err := c.Init(ctx); err != nil {
		return SweepSummary{}, err
	}

	sweepID := uuid.NewString()
	base := req.Run
	base.SweepID = sweepID
	started := time.Now().UTC()

	result, err := experiment.Sweep(ctx, experiment.Config{
		Replicates: req.Replicates,
		Workers:    req.Workers,
		BaseSeed:   base.Params.Seed,
		Logger:     c.logger.With("sweep_id", sweepID),
	}, func(ctx context.Context, replicate int, seed int64) (model.RunSummary, error) {
		run := base
		run.Params.Seed = seed
		run.Params.SeedProvided = true
		if base.OutputPrefix != "" {
			run.OutputPrefix = fmt.Sprintf("%srep%03d_", base.OutputPrefix, replicate)
		}
		summary, err := c.Run(ctx, run)
		if err != nil {
			return model.RunSummary{}, err
		}
		return summary.RunSummary, nil
	})
	if err != nil {
		return SweepSummary{}, err
	}

	entries := make([]stats.RunIndexEntry, 0, len(result.Runs))
	for _, run := range result.Runs {
		entries = append(entries, stats.IndexEntryFromSummary(run))
	}
	reportPath, err := stats.WriteSweepReport(c.artifactsDir, stats.SweepReport{
		SweepID:      sweepID,
		Params:       base.Params,
		BaseSeed:     base.Params.Seed,
		Fixation:     result.Fixation,
		Runs:         entries,
		CreatedAtUTC: started.Format(time.RFC3339Nano),
	})
	if err != nil {
		return SweepSummary{}, err
	}

	return SweepSummary{
		SweepID:    sweepID,
		Fixation:   result.Fixation,
		Runs:       entries,
		ReportPath: filepath.Clean(reportPath),
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]stats.RunIndexEntry, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := c.listRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.SweepID != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.SweepID == req.SweepID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

// Show loads a run from the store, falling back to its summary file when the
// store does not hold it (a memory store from an earlier process).
func (c *Client) Show(ctx context.Context, req ShowRequest) (RunDetail, error) {
	if err := c.Init(ctx); err != nil {
		return RunDetail{}, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return RunDetail{}, err
	}

	summary, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		summary, ok, err = stats.ReadRunSummary(c.artifactsDir, runID)
		if err != nil {
			return RunDetail{}, err
		}
		if !ok {
			return RunDetail{}, fmt.Errorf("%w: %s", storage.ErrRunNotFound, runID)
		}
	}

	snapshots, _, err := c.store.GetSnapshots(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	warnings, err := c.store.GetWarnings(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{Summary: summary, Snapshots: snapshots, Warnings: warnings}, nil
}

func (c *Client) Plot(ctx context.Context, req PlotRequest) (string, error) {
	if req.TrajectoryFile != "" {
		if req.RunID != "" || req.Latest {
			return "", errors.New("use either a trajectory file or a run")
		}
		snapshots, err := stats.ReadTrajectoryFile(req.TrajectoryFile)
		if err != nil {
			return "", err
		}
		out := req.OutPath
		if out == "" {
			out = filepath.Join(filepath.Dir(req.TrajectoryFile), stats.PlotFile)
		}
		if err := stats.PlotTrajectory(out, filepath.Base(req.TrajectoryFile), snapshots); err != nil {
			return "", err
		}
		return out, nil
	}

	detail, err := c.Show(ctx, ShowRequest{RunID: req.RunID, Latest: req.Latest})
	if err != nil {
		return "", err
	}
	if len(detail.Snapshots) == 0 {
		return "", fmt.Errorf("no stored snapshots for run %s; use a persistent store or plot its trajectory file", detail.Summary.RunID)
	}
	out := req.OutPath
	if out == "" {
		out = filepath.Join(c.artifactsDir, detail.Summary.RunID, stats.PlotFile)
	}
	if err := stats.PlotTrajectory(out, plotTitle(detail.Summary.Params), detail.Snapshots); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if err := c.Init(ctx); err != nil {
		return ExportSummary{}, err
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// WriteMetrics dumps the collectors fed by every run of this client.
func (c *Client) WriteMetrics(path string) error {
	return c.metrics.WriteTextfile(path)
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := c.listRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

// listRuns merges the run index with the runs held by the store, newest
// first. A persistent store may know runs indexed under another artifacts
// directory.
func (c *Client) listRuns(ctx context.Context) ([]stats.RunIndexEntry, error) {
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	stored, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored runs: %w", err)
	}

	indexed := make(map[string]bool, len(entries))
	for _, e := range entries {
		indexed[e.RunID] = true
	}
	added := false
	for _, summary := range stored {
		if indexed[summary.RunID] {
			continue
		}
		entries = append(entries, stats.IndexEntryFromSummary(summary))
		added = true
	}
	if added {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
		})
	}
	return entries, nil
}

func plotTitle(p model.Params) string {
	return fmt.Sprintf("N=%d mu=%g r=%g s=%g seed=%d", p.PopulationSize, p.MutationRate, p.RecombinationRate, p.SelectionAdvantage, p.Seed)
}

func closeFileSink(sink *stats.FileSink) {
	if sink != nil {
		_ = sink.Close()
	}
}
