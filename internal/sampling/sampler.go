// Package sampling turns genotype frequencies into a finite population.
package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"valleycross/internal/model"
)

const (
	// DefaultEpsilon is the largest probability handled by an independent
	// Poisson draw instead of the joint multinomial.
	DefaultEpsilon    = 1e-7
	DefaultMaxRedraws = 16
)

var (
	ErrSamplerOverflow = errors.New("small-probability draws exceed population size")
	ErrNoLargeCategory = errors.New("no genotype probability above epsilon")
)

// OverflowPolicy decides what happens when the Poisson draws for rare
// genotypes add up to more than the population size.
type OverflowPolicy string

const (
	OverflowClamp  OverflowPolicy = "clamp"
	OverflowRedraw OverflowPolicy = "redraw"
	OverflowFail   OverflowPolicy = "fail"
)

func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch OverflowPolicy(name) {
	case "", OverflowClamp:
		return OverflowClamp, nil
	case OverflowRedraw:
		return OverflowRedraw, nil
	case OverflowFail:
		return OverflowFail, nil
	default:
		return "", fmt.Errorf("unsupported overflow policy: %s", name)
	}
}

type Path int

const (
	PathDirect Path = iota
	PathSplit
)

func (p Path) String() string {
	if p == PathSplit {
		return "split"
	}
	return "direct"
}

// Outcome describes how a sample was produced.
type Outcome struct {
	Path    Path
	Small   int
	Redraws int
	// Overflow is how many Poisson draws were trimmed by the clamp policy.
	Overflow uint64
}

type Config struct {
	Source     rand.Source
	Epsilon    float64
	Overflow   OverflowPolicy
	MaxRedraws int
}

// Sampler owns the random stream of a run. It is not safe for concurrent use.
type Sampler struct {
	src        rand.Source
	epsilon    float64
	overflow   OverflowPolicy
	maxRedraws int
}

func NewSampler(cfg Config) (*Sampler, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Epsilon < 0 || cfg.Epsilon >= 1 {
		return nil, fmt.Errorf("epsilon must be in (0, 1), got %g", cfg.Epsilon)
	}
	policy, err := ParseOverflowPolicy(string(cfg.Overflow))
	if err != nil {
		return nil, err
	}
	if cfg.MaxRedraws <= 0 {
		cfg.MaxRedraws = DefaultMaxRedraws
	}
	return &Sampler{
		src:        cfg.Source,
		epsilon:    cfg.Epsilon,
		overflow:   policy,
		maxRedraws: cfg.MaxRedraws,
	}, nil
}

func (s *Sampler) Epsilon() float64 {
	return s.epsilon
}

// Sample draws a population of n individuals from f. When every probability
// exceeds epsilon it is a single multinomial draw; otherwise each rare
// genotype gets an independent Poisson draw with mean n*p (in index order)
// and the remaining budget is split multinomially across the others.
func (s *Sampler) Sample(n uint64, f model.Frequencies) (model.Counts, Outcome, error) {
	var counts model.Counts
	small := make([]int, 0, len(f))
	large := make([]int, 0, len(f))
	for i, p := range f {
		if p > s.epsilon {
			large = append(large, i)
		} else {
			small = append(small, i)
		}
	}

	if len(small) == 0 {
		draw := Multinomial(n, f[:], s.src)
		copy(counts[:], draw)
		return counts, Outcome{Path: PathDirect}, nil
	}

	outcome := Outcome{Path: PathSplit, Small: len(small)}
	if len(large) == 0 {
		return counts, outcome, fmt.Errorf("%w (epsilon=%g, frequencies=%s)", ErrNoLargeCategory, s.epsilon, f)
	}

	var drawn uint64
	for {
		drawn = 0
		for _, i := range small {
			counts[i] = poisson(float64(n)*f[i], s.src)
			drawn += counts[i]
		}
		if drawn <= n {
			break
		}
		switch s.overflow {
		case OverflowFail:
			return counts, outcome, fmt.Errorf("%w: drew %d of %d", ErrSamplerOverflow, drawn, n)
		case OverflowRedraw:
			if outcome.Redraws >= s.maxRedraws {
				return counts, outcome, fmt.Errorf("%w after %d redraws: drew %d of %d", ErrSamplerOverflow, outcome.Redraws, drawn, n)
			}
			outcome.Redraws++
			continue
		}
		outcome.Overflow = drawn - n
		trimSmallDraws(&counts, small, outcome.Overflow)
		drawn = n
		break
	}

	weights := make([]float64, len(large))
	for j, i := range large {
		weights[j] = f[i]
	}
	for j, k := range Multinomial(n-drawn, weights, s.src) {
		counts[large[j]] = k
	}
	return counts, outcome, nil
}

// trimSmallDraws removes excess individuals from the rare genotypes,
// starting with the highest index.
func trimSmallDraws(counts *model.Counts, small []int, excess uint64) {
	for j := len(small) - 1; j >= 0 && excess > 0; j-- {
		i := small[j]
		take := counts[i]
		if take > excess {
			take = excess
		}
		counts[i] -= take
		excess -= take
	}
}
