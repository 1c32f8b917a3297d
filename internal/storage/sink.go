package storage

import (
	"context"
	"fmt"

	"valleycross/internal/model"
)

// RunSink streams one run's snapshots and warnings into a Store.
type RunSink struct {
	store Store
	runID string
}

func NewRunSink(store Store, runID string) *RunSink {
	return &RunSink{store: store, runID: runID}
}

func (s *RunSink) Snapshot(ctx context.Context, snapshot model.Snapshot) error {
	if err := s.store.AppendSnapshot(ctx, s.runID, snapshot); err != nil {
		return fmt.Errorf("store snapshot %d: %w", snapshot.Generation, err)
	}
	return nil
}

func (s *RunSink) Warning(ctx context.Context, warning model.Warning) error {
	if err := s.store.AppendWarning(ctx, s.runID, warning); err != nil {
		return fmt.Errorf("store warning at generation %d: %w", warning.Generation, err)
	}
	return nil
}
