package storage

import (
	"context"
	"errors"

	"valleycross/internal/model"
)

var ErrRunNotFound = errors.New("run not found")

// Store persists run summaries together with the snapshots and warnings
// streamed while a run is in progress.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, summary model.RunSummary) error
	GetRun(ctx context.Context, runID string) (model.RunSummary, bool, error)
	// ListRuns returns every stored summary, newest first.
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	AppendSnapshot(ctx context.Context, runID string, snapshot model.Snapshot) error
	GetSnapshots(ctx context.Context, runID string) ([]model.Snapshot, bool, error)
	AppendWarning(ctx context.Context, runID string, warning model.Warning) error
	GetWarnings(ctx context.Context, runID string) ([]model.Warning, error)
}
