//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"valleycross/internal/model"
)

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "valleycross.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	older := Stamp(model.RunSummary{RunID: "run-a", Outcome: model.OutcomeGenerationCap, CreatedAtUTC: "2026-01-01T00:00:00Z"})
	newer := Stamp(model.RunSummary{RunID: "run-b", Outcome: model.OutcomeAbsorbed, FinalGeneration: 41, CreatedAtUTC: "2026-01-02T00:00:00Z"})
	for _, summary := range []model.RunSummary{older, newer} {
		if err := store.SaveRun(ctx, summary); err != nil {
			t.Fatalf("save run %s: %v", summary.RunID, err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, "run-b")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || loaded.FinalGeneration != 41 || !loaded.Absorbed() {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-b" || runs[1].RunID != "run-a" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestSQLiteStoreSnapshotsAndWarnings(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "valleycross.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	sink := NewRunSink(store, "run-1")
	for _, gen := range []uint64{20, 0, 10} {
		if err := sink.Snapshot(ctx, model.Snapshot{Generation: gen, Counts: model.InitialCounts(100)}); err != nil {
			t.Fatalf("snapshot %d: %v", gen, err)
		}
	}
	for _, kind := range []model.WarningKind{model.WarningTriplesFromNothing, model.WarningSamplerOverflow} {
		if err := sink.Warning(ctx, model.Warning{Kind: kind, Generation: 5}); err != nil {
			t.Fatalf("warning %s: %v", kind, err)
		}
	}

	snapshots, ok, err := store.GetSnapshots(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get snapshots: ok=%t err=%v", ok, err)
	}
	if len(snapshots) != 3 || snapshots[0].Generation != 0 || snapshots[2].Generation != 20 {
		t.Fatalf("expected snapshots ordered by generation, got %+v", snapshots)
	}

	warnings, err := store.GetWarnings(ctx, "run-1")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 2 || warnings[0].Kind != model.WarningTriplesFromNothing || warnings[1].Kind != model.WarningSamplerOverflow {
		t.Fatalf("expected warnings in insertion order, got %+v", warnings)
	}

	if _, ok, err := store.GetSnapshots(ctx, "run-2"); err != nil || ok {
		t.Fatalf("expected no snapshots for run-2, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "valleycross.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init first: %v", err)
	}
	if err := first.SaveRun(ctx, Stamp(model.RunSummary{RunID: "run-1", CreatedAtUTC: "2026-01-01T00:00:00Z"})); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close first: %v", err)
	}

	second, err := NewStore(KindSQLite, dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := second.Init(ctx); err != nil {
		t.Fatalf("init second: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseIfSupported(second)
	})

	if _, ok, err := second.GetRun(ctx, "run-1"); err != nil || !ok {
		t.Fatalf("expected run after reopen, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "valleycross.db"))
	if err := store.SaveRun(context.Background(), model.RunSummary{RunID: "x"}); err == nil {
		t.Fatal("expected uninitialized store error")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected missing path error")
	}
}
