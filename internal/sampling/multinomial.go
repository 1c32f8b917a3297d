package sampling

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewSource returns the PCG stream used for one run. The second PCG word is
// derived from the seed so that a single integer seed is enough.
func NewSource(seed int64) rand.Source {
	s := uint64(seed)
	return rand.NewPCG(s, s^0x9e3779b97f4a7c15)
}

// RandomSeed draws a seed for runs started without one.
func RandomSeed() int64 {
	return int64(rand.Uint64() >> 1)
}

// Multinomial draws n trials over categories with weights p. Weights need not
// be normalized; non-positive and NaN weights never receive trials. The
// result always sums to n when at least one weight is positive.
func Multinomial(n uint64, p []float64, src rand.Source) []uint64 {
	out := make([]uint64, len(p))
	last := -1
	mass := 0.0
	for i, w := range p {
		if w > 0 {
			mass += w
			last = i
		}
	}
	if last < 0 {
		return out
	}

	remaining := n
	for i := 0; i < last && remaining > 0; i++ {
		if !(p[i] > 0) {
			continue
		}
		k := binomial(remaining, p[i]/mass, src)
		out[i] = k
		remaining -= k
		mass -= p[i]
	}
	out[last] += remaining
	return out
}

func binomial(n uint64, p float64, src rand.Source) uint64 {
	if n == 0 || !(p > 0) {
		return 0
	}
	if p >= 1 {
		return n
	}
	draw := distuv.Binomial{N: float64(n), P: p, Src: src}.Rand()
	k := uint64(math.Round(draw))
	if k > n {
		k = n
	}
	return k
}

func poisson(lambda float64, src rand.Source) uint64 {
	if !(lambda > 0) {
		return 0
	}
	return uint64(math.Round(distuv.Poisson{Lambda: lambda, Src: src}.Rand()))
}
