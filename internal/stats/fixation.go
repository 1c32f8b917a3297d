package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"

	"valleycross/internal/model"
)

// FixationSummary describes the crossing times of a batch of replicate runs.
// Generation statistics only cover absorbed runs.
type FixationSummary struct {
	Replicates          int     `json:"replicates"`
	Absorbed            int     `json:"absorbed"`
	FixationProbability float64 `json:"fixation_probability"`
	MeanGeneration      float64 `json:"mean_generation"`
	StdGeneration       float64 `json:"std_generation"`
	MedianGeneration    float64 `json:"median_generation"`
	Q10Generation       float64 `json:"q10_generation"`
	Q90Generation       float64 `json:"q90_generation"`
	MinGeneration       float64 `json:"min_generation"`
	MaxGeneration       float64 `json:"max_generation"`
}

func SummarizeFixation(runs []model.RunSummary) FixationSummary {
	summary := FixationSummary{Replicates: len(runs)}
	times := make([]float64, 0, len(runs))
	for _, run := range runs {
		if run.Absorbed() {
			times = append(times, float64(run.FinalGeneration))
		}
	}
	summary.Absorbed = len(times)
	if len(runs) > 0 {
		summary.FixationProbability = float64(len(times)) / float64(len(runs))
	}
	if len(times) == 0 {
		return summary
	}

	sort.Float64s(times)
	summary.MeanGeneration = stat.Mean(times, nil)
	if len(times) > 1 {
		summary.StdGeneration = stat.StdDev(times, nil)
	}
	summary.MedianGeneration = stat.Quantile(0.5, stat.Empirical, times, nil)
	summary.Q10Generation = stat.Quantile(0.1, stat.Empirical, times, nil)
	summary.Q90Generation = stat.Quantile(0.9, stat.Empirical, times, nil)
	summary.MinGeneration = times[0]
	summary.MaxGeneration = times[len(times)-1]
	return summary
}

type SweepReport struct {
	SweepID      string          `json:"sweep_id"`
	Params       model.Params    `json:"params"`
	BaseSeed     int64           `json:"base_seed"`
	Fixation     FixationSummary `json:"fixation"`
	Runs         []RunIndexEntry `json:"runs"`
	CreatedAtUTC string          `json:"created_at_utc"`
}

func WriteSweepReport(baseDir string, report SweepReport) (string, error) {
	if report.SweepID == "" {
		return "", fmt.Errorf("sweep id is required")
	}
	dir := filepath.Join(baseDir, report.SweepID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sweepIndexFile)
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

func ReadSweepReport(baseDir, sweepID string) (SweepReport, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, sweepID, sweepIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return SweepReport{}, false, nil
		}
		return SweepReport{}, false, err
	}
	var report SweepReport
	if err := json.Unmarshal(data, &report); err != nil {
		return SweepReport{}, false, err
	}
	return report, true, nil
}
