package stats

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"valleycross/internal/model"
)

// MutationClass groups genotypes by how many mutations they carry.
type MutationClass int

const (
	ClassWildType MutationClass = iota
	ClassSingle
	ClassDouble
	ClassTriple
)

var classNames = [...]string{"wild type", "single mutants", "double mutants", "triple mutant"}

func (c MutationClass) String() string {
	return classNames[c]
}

// ClassOf maps a genotype index to its mutation class.
func ClassOf(index int) MutationClass {
	switch {
	case index == model.WildType:
		return ClassWildType
	case index < model.DoubleMutantStart:
		return ClassSingle
	case index < model.TripleMutant:
		return ClassDouble
	default:
		return ClassTriple
	}
}

// ClassFrequencies collapses a snapshot into per-class frequencies.
func ClassFrequencies(counts model.Counts) [4]float64 {
	var out [4]float64
	total := counts.Sum()
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[ClassOf(i)] += float64(c)
	}
	for i := range out {
		out[i] /= float64(total)
	}
	return out
}

// PlotTrajectory renders mutation-class frequencies against generation and
// saves the image; the format follows the file extension.
func PlotTrajectory(path, title string, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return fmt.Errorf("trajectory is empty")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "frequency"
	p.Y.Min = 0
	p.Y.Max = 1

	series := make([]plotter.XYs, len(classNames))
	for c := range series {
		series[c] = make(plotter.XYs, len(snapshots))
	}
	for i, snap := range snapshots {
		freqs := ClassFrequencies(snap.Counts)
		for c := range series {
			series[c][i].X = float64(snap.Generation)
			series[c][i].Y = freqs[c]
		}
	}

	args := make([]any, 0, 2*len(series))
	for c, xys := range series {
		args = append(args, MutationClass(c).String(), xys)
	}
	if err := plotutil.AddLines(p, args...); err != nil {
		return fmt.Errorf("add lines: %w", err)
	}
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
