package evo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"valleycross/internal/genotype"
	"valleycross/internal/model"
)

// Operator is the deterministic part of a generation: recombination, then
// mutation, then selection, each applied as an in-place correction of the
// frequency vector.
type Operator struct {
	landscape         *genotype.Landscape
	recombinationRate float64
}

func NewOperator(landscape *genotype.Landscape, recombinationRate float64) (*Operator, error) {
	if landscape == nil {
		return nil, fmt.Errorf("landscape is required")
	}
	if recombinationRate < 0 || recombinationRate > 1 {
		return nil, fmt.Errorf("recombination rate must be in [0, 1], got %g", recombinationRate)
	}
	return &Operator{landscape: landscape, recombinationRate: recombinationRate}, nil
}

// Advance applies one generation of recombination, mutation and selection.
// Only the selection step renormalizes; drift from the first two steps is
// left for the caller to check.
func (o *Operator) Advance(f model.Frequencies) model.Frequencies {
	v := toVec(f)
	o.recombine(v)
	o.mutate(v)
	o.selectFitness(v)
	return fromVec(v)
}

func (o *Operator) Recombine(f model.Frequencies) model.Frequencies {
	v := toVec(f)
	o.recombine(v)
	return fromVec(v)
}

func (o *Operator) Mutate(f model.Frequencies) model.Frequencies {
	v := toVec(f)
	o.mutate(v)
	return fromVec(v)
}

func (o *Operator) Select(f model.Frequencies) model.Frequencies {
	v := toVec(f)
	o.selectFitness(v)
	return fromVec(v)
}

// f += -(r/2) f + (r/2) sum_xy f_x f_y T[x,y,.]
func (o *Operator) recombine(v *mat.VecDense) {
	half := o.recombinationRate / 2
	offspring := o.landscape.Recombination.Contract(v)
	v.AddScaledVec(v, -half, v)
	v.AddScaledVec(v, half, offspring)
}

// f += f.M - 3m f
func (o *Operator) mutate(v *mat.VecDense) {
	var gain mat.VecDense
	gain.MulVec(o.landscape.Mutation.T(), v)
	v.AddScaledVec(v, -float64(genotype.Loci)*o.landscape.MutationRate, v)
	v.AddVec(v, &gain)
}

// f *= w / (f.w)
func (o *Operator) selectFitness(v *mat.VecDense) {
	mean := mat.Dot(v, o.landscape.Fitness)
	v.MulElemVec(v, o.landscape.Fitness)
	v.ScaleVec(1/mean, v)
}

func toVec(f model.Frequencies) *mat.VecDense {
	data := make([]float64, len(f))
	copy(data, f[:])
	return mat.NewVecDense(len(data), data)
}

func fromVec(v *mat.VecDense) model.Frequencies {
	var f model.Frequencies
	for i := range f {
		f[i] = v.AtVec(i)
	}
	return f
}
