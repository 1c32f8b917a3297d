package stats

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"valleycross/internal/model"
)

const (
	ParamsFile     = "params.txt"
	TrajectoryFile = "trajectory.txt"
	WarningsFile   = "warnings.log"
)

// FormatParams renders the parameter record: population size with three
// significant digits, the rates as given, and "None" for a drawn seed.
func FormatParams(p model.Params) string {
	seed := "None"
	if p.SeedProvided {
		seed = strconv.FormatInt(p.Seed, 10)
	}
	lines := []string{
		"N = " + strconv.FormatFloat(float64(p.PopulationSize), 'g', 3, 64),
		"mu = " + formatFloat(p.MutationRate),
		"r = " + formatFloat(p.RecombinationRate),
		"s = " + formatFloat(p.SelectionAdvantage),
		"tstep = " + strconv.FormatUint(p.SnapshotInterval, 10),
		"seed = " + seed,
	}
	return strings.Join(lines, "\n") + "\n"
}

// formatFloat renders v with the shortest round-trip digits. Values outside
// [1e-4, 1e16) use exponent form; whole numbers get a ".0" suffix.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatSnapshot renders one trajectory line: generation then the counts.
func FormatSnapshot(s model.Snapshot) string {
	return strconv.FormatUint(s.Generation, 10) + " " + s.Counts.String()
}

// FormatWarning renders a warning with enough context to diagnose it
// offline.
func FormatWarning(w model.Warning) string {
	var b strings.Builder
	b.WriteString(w.Message)
	b.WriteString("\nPrevious generation: [")
	b.WriteString(w.Previous.String())
	b.WriteString("]\nPre-sampling frequencies: ")
	b.WriteString(w.Frequencies.String())
	if w.Kind != model.WarningImproperFrequencies {
		b.WriteString("\nNew generation: [")
		b.WriteString(w.Current.String())
		b.WriteString("]")
	}
	b.WriteString("\n")
	return b.String()
}

// FileSink streams a run to <prefix>params.txt, <prefix>trajectory.txt and
// <prefix>warnings.log. The prefix is concatenated, not joined, so it may
// carry a file-name stem as well as a directory.
type FileSink struct {
	trajectoryFile *os.File
	warningsFile   *os.File
	trajectory     *bufio.Writer
	warnings       *bufio.Writer
}

func OpenFileSink(prefix string, params model.Params) (*FileSink, error) {
	if dir := filepath.Dir(prefix + ParamsFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(prefix+ParamsFile, []byte(FormatParams(params)), 0o644); err != nil {
		return nil, fmt.Errorf("write params: %w", err)
	}

	trajectory, err := os.Create(prefix + TrajectoryFile)
	if err != nil {
		return nil, fmt.Errorf("create trajectory: %w", err)
	}
	warnings, err := os.Create(prefix + WarningsFile)
	if err != nil {
		_ = trajectory.Close()
		return nil, fmt.Errorf("create warnings log: %w", err)
	}
	return &FileSink{
		trajectoryFile: trajectory,
		warningsFile:   warnings,
		trajectory:     bufio.NewWriter(trajectory),
		warnings:       bufio.NewWriter(warnings),
	}, nil
}

func (s *FileSink) Snapshot(_ context.Context, snapshot model.Snapshot) error {
	_, err := s.trajectory.WriteString(FormatSnapshot(snapshot) + "\n")
	return err
}

func (s *FileSink) Warning(_ context.Context, warning model.Warning) error {
	if _, err := s.warnings.WriteString(FormatWarning(warning)); err != nil {
		return err
	}
	// Warnings are flushed one by one; trajectory lines only on Close.
	return s.warnings.Flush()
}

func (s *FileSink) Close() error {
	var errs []error
	if err := s.trajectory.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := s.warnings.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := s.trajectoryFile.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.warningsFile.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseTrajectory reads trajectory lines back into snapshots. The last line
// of an absorbed run is not marked; callers that need it compare against
// the run summary.
func ParseTrajectory(r io.Reader) ([]model.Snapshot, error) {
	var snapshots []model.Snapshot
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != model.GenotypeCount+1 {
			return nil, fmt.Errorf("trajectory line %d: expected %d fields, got %d", line, model.GenotypeCount+1, len(fields))
		}
		var snap model.Snapshot
		gen, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trajectory line %d: generation: %w", line, err)
		}
		snap.Generation = gen
		for i := range snap.Counts {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("trajectory line %d: count %d: %w", line, i, err)
			}
			snap.Counts[i] = v
		}
		snapshots = append(snapshots, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func ReadTrajectoryFile(path string) ([]model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTrajectory(f)
}
