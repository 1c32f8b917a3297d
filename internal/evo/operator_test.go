package evo

import (
	"math"
	"testing"

	"valleycross/internal/genotype"
	"valleycross/internal/model"
)

func newTestOperator(t *testing.T, m, r, s float64) *Operator {
	t.Helper()
	landscape, err := genotype.NewLandscape(m, s)
	if err != nil {
		t.Fatalf("new landscape: %v", err)
	}
	op, err := NewOperator(landscape, r)
	if err != nil {
		t.Fatalf("new operator: %v", err)
	}
	return op
}

func TestNewOperatorValidation(t *testing.T) {
	if _, err := NewOperator(nil, 0.5); err == nil {
		t.Fatal("expected missing landscape error")
	}
	landscape, err := genotype.NewLandscape(0, 0)
	if err != nil {
		t.Fatalf("new landscape: %v", err)
	}
	if _, err := NewOperator(landscape, 1.5); err == nil {
		t.Fatal("expected recombination rate error")
	}
}

func TestSelectFixedPointAtTripleMutant(t *testing.T) {
	op := newTestOperator(t, 1e-5, 0.5, 0.1)
	f := model.Frequencies{model.TripleMutant: 1}
	if got := op.Select(f); got != f {
		t.Fatalf("selection moved the fixed point: %v", got)
	}
}

func TestSelectReweightsByFitness(t *testing.T) {
	op := newTestOperator(t, 0, 0, 1)
	f := model.Frequencies{0.5, 0, 0, 0, 0, 0, 0, 0.5}
	got := op.Select(f)
	if math.Abs(got[model.TripleMutant]-2.0/3) > 1e-15 || math.Abs(got[model.WildType]-1.0/3) > 1e-15 {
		t.Fatalf("unexpected selection result: %v", got)
	}
}

func TestMutateFromWildType(t *testing.T) {
	const m = 0.01
	op := newTestOperator(t, m, 0, 0)
	got := op.Mutate(model.Frequencies{model.WildType: 1})
	if math.Abs(got[model.WildType]-(1-3*m)) > 1e-15 {
		t.Fatalf("wild type = %g, want %g", got[model.WildType], 1-3*m)
	}
	for i := 1; i < model.DoubleMutantStart; i++ {
		if got[i] != m {
			t.Fatalf("single %d = %g, want %g", i, got[i], m)
		}
	}
	for i := model.DoubleMutantStart; i < model.GenotypeCount; i++ {
		if got[i] != 0 {
			t.Fatalf("multi mutant %d = %g, want 0", i, got[i])
		}
	}
}

func TestRecombineBreaksUpDoublesIntoTriples(t *testing.T) {
	op := newTestOperator(t, 0, 1, 0)
	// (++-) x (--+) produces (+++) with probability 1/8.
	f := model.Frequencies{4: 0.5, 3: 0.5}
	got := op.Recombine(f)
	if got[model.TripleMutant] <= 0 {
		t.Fatalf("expected recombination to produce triples, got %v", got)
	}
	if math.Abs(got.Sum()-1) > 1e-12 {
		t.Fatalf("recombination changed total mass: %g", got.Sum())
	}
	if want := 0.5 * 2 * 0.25 * 0.125; math.Abs(got[model.TripleMutant]-want) > 1e-15 {
		t.Fatalf("triple frequency = %g, want %g", got[model.TripleMutant], want)
	}
}

func TestAdvanceKeepsWildTypeWithoutMutation(t *testing.T) {
	op := newTestOperator(t, 0, 0.7, 0)
	f := model.Frequencies{model.WildType: 1}
	for i := 0; i < 10; i++ {
		f = op.Advance(f)
	}
	if math.Abs(f[model.WildType]-1) > 1e-12 {
		t.Fatalf("wild type population drifted without mutation: %v", f)
	}
	for i := 1; i < model.GenotypeCount; i++ {
		if f[i] != 0 {
			t.Fatalf("genotype %d appeared without mutation: %v", i, f)
		}
	}
}

func TestAdvanceStaysNormalized(t *testing.T) {
	op := newTestOperator(t, 1e-3, 0.5, 0.2)
	f := model.Frequencies{0.3, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
	for i := 0; i < 100; i++ {
		f = op.Advance(f)
		if !CheckFrequencies(f, DefaultFrequencyTolerance) {
			t.Fatalf("generation %d produced improper frequencies: %v", i, f)
		}
	}
	if f[model.TripleMutant] < 0.5 {
		t.Fatalf("expected the favoured triple mutant to dominate, got %v", f)
	}
}

func TestCheckFrequencies(t *testing.T) {
	cases := []struct {
		name string
		f    model.Frequencies
		want bool
	}{
		{"wild type", model.Frequencies{1}, true},
		{"uniform", model.Frequencies{0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125}, true},
		{"sum above one", model.Frequencies{0.51, 0.5}, false},
		{"within tolerance", model.Frequencies{0.5, 0.5 + 5e-7}, true},
		{"negative", model.Frequencies{1.1, -0.1}, false},
		{"above one", model.Frequencies{1.5, -0.5}, false},
		{"nan", model.Frequencies{math.NaN(), 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckFrequencies(tc.f, DefaultFrequencyTolerance); got != tc.want {
				t.Fatalf("CheckFrequencies(%v) = %t, want %t", tc.f, got, tc.want)
			}
		})
	}
}
