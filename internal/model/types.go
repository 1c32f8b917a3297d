package model

import (
	"strconv"
	"strings"
)

const (
	GenotypeCount = 8

	WildType          = 0
	DoubleMutantStart = 4
	TripleMutant      = GenotypeCount - 1
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Frequencies is a probability vector over the genotypes, indexed like
// genotype.All.
type Frequencies [GenotypeCount]float64

func (f Frequencies) Sum() float64 {
	total := 0.0
	for _, v := range f {
		total += v
	}
	return total
}

func (f Frequencies) String() string {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Counts is a realized population over the genotypes.
type Counts [GenotypeCount]uint64

// InitialCounts puts the whole population on the wild type.
func InitialCounts(n uint64) Counts {
	var c Counts
	c[WildType] = n
	return c
}

func (c Counts) Sum() uint64 {
	var total uint64
	for _, v := range c {
		total += v
	}
	return total
}

// MultiMutants sums the classes carrying at least two mutations.
func (c Counts) MultiMutants() uint64 {
	var total uint64
	for _, v := range c[DoubleMutantStart:] {
		total += v
	}
	return total
}

func (c Counts) Frequencies(n uint64) Frequencies {
	var f Frequencies
	if n == 0 {
		return f
	}
	for i, v := range c {
		f[i] = float64(v) / float64(n)
	}
	return f
}

func (c Counts) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, " ")
}

type Params struct {
	PopulationSize     uint64  `json:"population_size"`
	MutationRate       float64 `json:"mutation_rate"`
	RecombinationRate  float64 `json:"recombination_rate"`
	SelectionAdvantage float64 `json:"selection_advantage"`
	MaxGenerations     uint64  `json:"max_generations"`
	SnapshotInterval   uint64  `json:"snapshot_interval"`
	Seed               int64   `json:"seed"`
	SeedProvided       bool    `json:"seed_provided"`
}

type Snapshot struct {
	Generation uint64 `json:"generation"`
	Counts     Counts `json:"counts"`
	Absorbed   bool   `json:"absorbed,omitempty"`
}

type WarningKind string

const (
	WarningImproperFrequencies WarningKind = "improper_frequencies"
	WarningTriplesFromNothing  WarningKind = "triples_from_nothing"
	WarningSamplerOverflow     WarningKind = "sampler_overflow"
)

type Warning struct {
	Kind        WarningKind `json:"kind"`
	Generation  uint64      `json:"generation"`
	Message     string      `json:"message"`
	Previous    Counts      `json:"previous"`
	Frequencies Frequencies `json:"frequencies"`
	Current     Counts      `json:"current"`
}

type Outcome string

const (
	OutcomeAbsorbed      Outcome = "absorbed"
	OutcomeGenerationCap Outcome = "generation_cap"
)

type RunSummary struct {
	VersionedRecord
	RunID           string              `json:"run_id"`
	SweepID         string              `json:"sweep_id,omitempty"`
	Params          Params              `json:"params"`
	Outcome         Outcome             `json:"outcome"`
	FinalGeneration uint64              `json:"final_generation"`
	FinalCounts     Counts              `json:"final_counts"`
	Snapshots       int                 `json:"snapshots"`
	WarningCounts   map[WarningKind]int `json:"warning_counts,omitempty"`
	CreatedAtUTC    string              `json:"created_at_utc"`
	ElapsedMS       int64               `json:"elapsed_ms"`
}

func (s RunSummary) Absorbed() bool {
	return s.Outcome == OutcomeAbsorbed
}
