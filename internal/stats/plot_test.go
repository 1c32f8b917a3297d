package stats

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"valleycross/internal/model"
)

func TestClassOf(t *testing.T) {
	want := []MutationClass{
		ClassWildType,
		ClassSingle, ClassSingle, ClassSingle,
		ClassDouble, ClassDouble, ClassDouble,
		ClassTriple,
	}
	for i, class := range want {
		if got := ClassOf(i); got != class {
			t.Fatalf("index %d: got %s want %s", i, got, class)
		}
	}
}

func TestClassFrequencies(t *testing.T) {
	freqs := ClassFrequencies(model.Counts{40, 10, 10, 10, 5, 5, 10, 10})
	want := [4]float64{0.4, 0.3, 0.2, 0.1}
	for i := range want {
		if math.Abs(freqs[i]-want[i]) > 1e-12 {
			t.Fatalf("class %d: got %g want %g", i, freqs[i], want[i])
		}
	}
	if ClassFrequencies(model.Counts{}) != ([4]float64{}) {
		t.Fatal("expected zero frequencies for an empty population")
	}
}

func TestPlotTrajectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), PlotFile)
	snapshots := []model.Snapshot{
		{Generation: 0, Counts: model.InitialCounts(100)},
		{Generation: 10, Counts: model.Counts{80, 5, 5, 5, 2, 1, 1, 1}},
		{Generation: 20, Counts: model.Counts{0, 0, 0, 0, 0, 0, 0, 100}, Absorbed: true},
	}
	if err := PlotTrajectory(path, "N=100", snapshots); err != nil {
		t.Fatalf("plot trajectory: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected plot file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty plot")
	}

	if err := PlotTrajectory(path, "empty", nil); err == nil {
		t.Fatal("expected empty trajectory error")
	}
}
