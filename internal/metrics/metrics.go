// Package metrics exposes run progress as prometheus collectors. A Collector
// is fed as a run sink and can be shared by the runs of a sweep.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"valleycross/internal/model"
)

const namespace = "valleycross"

type Collector struct {
	registry *prometheus.Registry

	snapshots        prometheus.Counter
	warnings         *prometheus.CounterVec
	runs             *prometheus.CounterVec
	crossingTime     prometheus.Histogram
	generation       prometheus.Gauge
	tripleFrequency  prometheus.Gauge
	multiMutantShare prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Trajectory snapshots emitted.",
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Soft anomalies raised by the simulation loop.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
		crossingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crossing_generations",
			Help:      "Generations until the triple mutant became the majority.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 14),
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Generation of the latest snapshot.",
		}),
		tripleFrequency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "triple_mutant_frequency",
			Help:      "Triple mutant frequency at the latest snapshot.",
		}),
		multiMutantShare: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "multi_mutant_frequency",
			Help:      "Frequency of genotypes carrying two or more mutations at the latest snapshot.",
		}),
	}
	c.registry.MustRegister(
		c.snapshots,
		c.warnings,
		c.runs,
		c.crossingTime,
		c.generation,
		c.tripleFrequency,
		c.multiMutantShare,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Snapshot(_ context.Context, snapshot model.Snapshot) error {
	c.snapshots.Inc()
	c.generation.Set(float64(snapshot.Generation))
	if total := snapshot.Counts.Sum(); total > 0 {
		c.tripleFrequency.Set(float64(snapshot.Counts[model.TripleMutant]) / float64(total))
		c.multiMutantShare.Set(float64(snapshot.Counts.MultiMutants()) / float64(total))
	}
	return nil
}

func (c *Collector) Warning(_ context.Context, warning model.Warning) error {
	c.warnings.WithLabelValues(string(warning.Kind)).Inc()
	return nil
}

// ObserveRun records a finished run. Crossing times are only observed for
// absorbed runs.
func (c *Collector) ObserveRun(summary model.RunSummary) {
	c.runs.WithLabelValues(string(summary.Outcome)).Inc()
	if summary.Absorbed() {
		c.crossingTime.Observe(float64(summary.FinalGeneration))
	}
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
