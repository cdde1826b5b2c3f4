// Package metrics exposes run statistics as Prometheus metrics and writes
// them in the node exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/papapumpkin/constellation/internal/report"
)

const namespace = "constellation"

// Collector holds all Prometheus metrics for a generation run.
type Collector struct {
	Registry *prometheus.Registry

	// Inventory and generation
	Modules   *prometheus.GaugeVec
	Manifests *prometheus.GaugeVec
	Failures  *prometheus.GaugeVec

	// Classification
	StarModules      *prometheus.GaugeVec
	StarConfidence   *prometheus.GaugeVec
	ClassifyDuration prometheus.Histogram

	// Outcome
	SuccessRatio  prometheus.Gauge
	ContextFiles  prometheus.Gauge
	Violations    *prometheus.GaugeVec
	Clusters      prometheus.Gauge
	RunsTotal     prometheus.Counter
	RunDuration   prometheus.Gauge
	LastRunSecond prometheus.Gauge
}

// New creates a collector registered on its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		Registry: reg,

		Modules: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "modules",
				Help:      "Modules discovered per lane",
			},
			[]string{"lane"},
		),
		Manifests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "manifests",
				Help:      "Manifests generated per lane",
			},
			[]string{"lane"},
		),
		Failures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "manifest_failures",
				Help:      "Modules whose manifest could not be generated, per lane",
			},
			[]string{"lane"},
		),

		StarModules: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "star_modules",
				Help:      "Manifests assigned to each star",
			},
			[]string{"star", "domain"},
		),
		StarConfidence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "star_confidence_avg",
				Help:      "Mean classification confidence per star",
			},
			[]string{"star"},
		),
		ClassifyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "module_duration_seconds",
				Help:      "Time to classify and generate one module",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),

		SuccessRatio: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "success_ratio",
				Help:      "Generated manifests divided by attempted modules",
			},
		),
		ContextFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "context_files",
				Help:      "Context files written in the last run",
			},
		),
		Violations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "violations",
				Help:      "Validation violations per category",
			},
			[]string{"category"},
		),
		Clusters: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dependency_clusters",
				Help:      "Weakly connected dependency clusters",
			},
		),
		RunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Generation runs completed by this process",
			},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run",
			},
		),
		LastRunSecond: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

// ObserveDashboard sets every gauge from a finished run's dashboard.
func (c *Collector) ObserveDashboard(d *report.Dashboard, took time.Duration, finished time.Time) {
	for _, l := range d.Lanes {
		c.Modules.WithLabelValues(string(l.Lane)).Set(float64(l.Modules))
		c.Manifests.WithLabelValues(string(l.Lane)).Set(float64(l.Manifests))
		c.Failures.WithLabelValues(string(l.Lane)).Set(float64(l.Failures))
	}
	for _, s := range d.Stars {
		c.StarModules.WithLabelValues(string(s.Star), s.Domain).Set(float64(s.Count))
		c.StarConfidence.WithLabelValues(string(s.Star)).Set(s.AvgConfidence)
	}
	for _, v := range d.Violations {
		c.Violations.WithLabelValues(v.Name).Set(float64(v.Count))
	}
	c.SuccessRatio.Set(d.Totals.SuccessRate)
	c.ContextFiles.Set(float64(d.Totals.ContextFiles))
	c.Clusters.Set(float64(d.Totals.Clusters))
	c.RunDuration.Set(took.Seconds())
	c.LastRunSecond.Set(float64(finished.Unix()))
	c.RunsTotal.Inc()
}

// WriteTextfile writes every metric to path for the node exporter textfile
// collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: create dir for %s: %w", path, err)
	}
	if err := prometheus.WriteToTextfile(path, c.Registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
