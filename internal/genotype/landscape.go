package genotype

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"valleycross/internal/model"
)

// MutationMatrix returns the single-step mutation rates between genotypes:
// m where two genotypes differ at exactly one locus, zero elsewhere.
func MutationMatrix(m float64) *mat.SymDense {
	n := model.GenotypeCount
	matrix := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if Dot(All[i], All[j]) == Loci-2 {
				matrix.SetSym(i, j, m)
			}
		}
	}
	return matrix
}

// MendelProb is the probability that parents x and y produce offspring z
// under independent segregation of every locus.
func MendelProb(x, y, z Genotype) float64 {
	p := 1.0
	for locus := range x {
		switch {
		case x[locus] == y[locus] && y[locus] == z[locus]:
		case x[locus] == z[locus] || y[locus] == z[locus]:
			p *= 0.5
		default:
			return 0
		}
	}
	return p
}

// Tensor holds one parent-pair matrix per offspring genotype:
// Tensor[z].At(x, y) = MendelProb(x, y, z).
type Tensor [model.GenotypeCount]*mat.Dense

func RecombinationTensor() Tensor {
	var t Tensor
	n := model.GenotypeCount
	for z := 0; z < n; z++ {
		t[z] = mat.NewDense(n, n, nil)
		for x := 0; x < n; x++ {
			for y := 0; y < n; y++ {
				t[z].Set(x, y, MendelProb(All[x], All[y], All[z]))
			}
		}
	}
	return t
}

// Contract returns, for every offspring z, the frequency mass produced by
// random mating: sum over ordered pairs of f[x]*f[y]*T[x,y,z].
func (t Tensor) Contract(f *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(model.GenotypeCount, nil)
	for z, pairs := range t {
		out.SetVec(z, mat.Inner(f, pairs, f))
	}
	return out
}

// Fitness is 1 for every genotype except the triple mutant, which gets 1+s.
func Fitness(s float64) *mat.VecDense {
	w := mat.NewVecDense(model.GenotypeCount, nil)
	for i := 0; i < model.GenotypeCount; i++ {
		w.SetVec(i, 1)
	}
	w.SetVec(model.TripleMutant, 1+s)
	return w
}

// Landscape bundles the lookup tables of a run. It is built once and never
// mutated.
type Landscape struct {
	MutationRate  float64
	Mutation      *mat.SymDense
	Recombination Tensor
	Fitness       *mat.VecDense
}

func NewLandscape(m, s float64) (*Landscape, error) {
	if m < 0 {
		return nil, fmt.Errorf("mutation rate must be >= 0")
	}
	if 3*m > 1 {
		return nil, fmt.Errorf("mutation rate must be <= 1/3, got %g", m)
	}
	if s <= -1 {
		return nil, fmt.Errorf("selection advantage must be > -1, got %g", s)
	}
	return &Landscape{
		MutationRate:  m,
		Mutation:      MutationMatrix(m),
		Recombination: RecombinationTensor(),
		Fitness:       Fitness(s),
	}, nil
}
