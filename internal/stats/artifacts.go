package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"valleycross/internal/model"
)

const (
	runIndexFile   = "run_index.json"
	summaryFile    = "summary.json"
	PlotFile       = "trajectory.png"
	sweepIndexFile = "sweep.json"
)

type RunIndexEntry struct {
	RunID              string        `json:"run_id"`
	SweepID            string        `json:"sweep_id,omitempty"`
	PopulationSize     uint64        `json:"population_size"`
	MutationRate       float64       `json:"mutation_rate"`
	RecombinationRate  float64       `json:"recombination_rate"`
	SelectionAdvantage float64       `json:"selection_advantage"`
	Seed               int64         `json:"seed"`
	Outcome            model.Outcome `json:"outcome"`
	FinalGeneration    uint64        `json:"final_generation"`
	CreatedAtUTC       string        `json:"created_at_utc"`
}

func IndexEntryFromSummary(summary model.RunSummary) RunIndexEntry {
	return RunIndexEntry{
		RunID:              summary.RunID,
		SweepID:            summary.SweepID,
		PopulationSize:     summary.Params.PopulationSize,
		MutationRate:       summary.Params.MutationRate,
		RecombinationRate:  summary.Params.RecombinationRate,
		SelectionAdvantage: summary.Params.SelectionAdvantage,
		Seed:               summary.Params.Seed,
		Outcome:            summary.Outcome,
		FinalGeneration:    summary.FinalGeneration,
		CreatedAtUTC:       summary.CreatedAtUTC,
	}
}

func WriteRunSummary(baseDir string, summary model.RunSummary) (string, error) {
	if summary.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, summary.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), summary); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunSummary(baseDir, runID string) (model.RunSummary, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunSummary{}, false, nil
		}
		return model.RunSummary{}, false, err
	}

	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, false, err
	}
	return summary, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the indexed runs, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run's directory (summary and plot, when
// present) to outDir/runID.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	if err := copyFile(filepath.Join(src, summaryFile), filepath.Join(dst, summaryFile)); err != nil {
		return "", err
	}
	plotPath := filepath.Join(src, PlotFile)
	if _, err := os.Stat(plotPath); err == nil {
		if err := copyFile(plotPath, filepath.Join(dst, PlotFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
