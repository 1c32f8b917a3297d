package evo

import (
	"math"

	"valleycross/internal/model"
)

// DefaultFrequencyTolerance bounds how far the frequency sum may drift from 1
// before a generation is flagged.
const DefaultFrequencyTolerance = 1e-6

// CheckFrequencies reports whether f is a proper probability vector: every
// component in [0, 1] and the sum within tol of 1. NaN components fail.
func CheckFrequencies(f model.Frequencies, tol float64) bool {
	for _, v := range f {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return math.Abs(f.Sum()-1) <= tol
}
