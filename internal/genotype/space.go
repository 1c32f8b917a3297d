package genotype

import "valleycross/internal/model"

// Loci is the number of biallelic loci tracked per genotype.
const Loci = 3

// Genotype holds one allele per locus: -1 is the ancestral allele, +1 the
// mutant allele.
type Genotype [Loci]int8

// All enumerates the genotypes in their stable order. Index 0 is the wild
// type and the last index the triple mutant; singles come before doubles.
var All = [model.GenotypeCount]Genotype{
	{-1, -1, -1},
	{1, -1, -1},
	{-1, 1, -1},
	{-1, -1, 1},
	{1, 1, -1},
	{1, -1, 1},
	{-1, 1, 1},
	{1, 1, 1},
}

func Dot(a, b Genotype) int {
	total := 0
	for locus := range a {
		total += int(a[locus]) * int(b[locus])
	}
	return total
}

// Hamming counts the loci at which a and b carry different alleles.
func Hamming(a, b Genotype) int {
	// With ±1 alleles, dot = loci - 2*hamming.
	return (Loci - Dot(a, b)) / 2
}

// Mutations counts the mutant alleles carried by g.
func Mutations(g Genotype) int {
	n := 0
	for _, allele := range g {
		if allele > 0 {
			n++
		}
	}
	return n
}

func (g Genotype) String() string {
	out := make([]byte, Loci)
	for locus, allele := range g {
		if allele > 0 {
			out[locus] = '+'
		} else {
			out[locus] = '-'
		}
	}
	return string(out)
}
