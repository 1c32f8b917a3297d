package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"valleycross/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunSummary
	order       map[string]int
	snapshots   map[string][]model.Snapshot
	warnings    map[string][]model.Warning
	seq         int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunSummary)
	s.order = make(map[string]int)
	s.snapshots = make(map[string][]model.Snapshot)
	s.warnings = make(map[string][]model.Warning)
	s.seq = 0
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if _, ok := s.order[summary.RunID]; !ok {
		s.seq++
		s.order[summary.RunID] = s.seq
	}
	s.runs[summary.RunID] = cloneSummary(summary)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[runID]
	if !ok {
		return model.RunSummary{}, false, nil
	}
	return cloneSummary(summary), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunSummary, 0, len(s.runs))
	for _, summary := range s.runs {
		out = append(out, cloneSummary(summary))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return s.order[out[i].RunID] > s.order[out[j].RunID]
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func (s *MemoryStore) AppendSnapshot(_ context.Context, runID string, snapshot model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.snapshots[runID] = append(s.snapshots[runID], snapshot)
	return nil
}

func (s *MemoryStore) GetSnapshots(_ context.Context, runID string) ([]model.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, ok := s.snapshots[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.Snapshot(nil), snapshots...), true, nil
}

func (s *MemoryStore) AppendWarning(_ context.Context, runID string, warning model.Warning) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.warnings[runID] = append(s.warnings[runID], warning)
	return nil
}

func (s *MemoryStore) GetWarnings(_ context.Context, runID string) ([]model.Warning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Warning(nil), s.warnings[runID]...), nil
}

var errNotInitialized = errors.New("store is not initialized")

func cloneSummary(summary model.RunSummary) model.RunSummary {
	if summary.WarningCounts != nil {
		counts := make(map[model.WarningKind]int, len(summary.WarningCounts))
		for kind, n := range summary.WarningCounts {
			counts[kind] = n
		}
		summary.WarningCounts = counts
	}
	return summary
}
