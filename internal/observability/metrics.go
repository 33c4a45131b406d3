package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation service.
type Metrics struct {
	AggregationsTotal   prometheus.Counter
	AggregationErrors   prometheus.Counter
	AggregationDuration prometheus.Histogram
	AggregatedRegions   prometheus.Histogram
	FitSkipped          prometheus.Counter

	RendersTotal   prometheus.Counter
	RenderDuration prometheus.Histogram

	// Snapshot publishing metrics.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	// Dataset metrics, set once after the startup fetch.
	DatasetRows    *prometheus.GaugeVec // label: dataset={cases,mobility}
	DatasetsLoaded prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AggregationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mobility_growth",
			Name:      "aggregations_total",
			Help:      "Total aggregation recomputations.",
		}),
		AggregationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mobility_growth",
			Name:      "aggregation_errors_total",
			Help:      "Total aggregation requests rejected for invalid parameters.",
		}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mobility_growth",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of one aggregate-join-fit recomputation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		AggregatedRegions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mobility_growth",
			Name:      "aggregated_regions",
			Help:      "Number of regions in an aggregation result.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		FitSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mobility_growth",
			Name:      "fit_skipped_total",
			Help:      "Recomputations without a trend line (too few finite points).",
		}),
		RendersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mobility_growth",
			Name:      "renders_total",
			Help:      "Total scatter plot renders.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mobility_growth",
			Name:      "render_duration_seconds",
			Help:      "Duration of one PNG render.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mobility_growth",
			Name:      "snapshots_published_total",
			Help:      "Snapshots published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mobility_growth",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publishes.",
		}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mobility_growth",
			Name:      "dataset_rows",
			Help:      "Rows loaded per source dataset.",
		}, []string{"dataset"}),
		DatasetsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mobility_growth",
			Name:      "datasets_loaded",
			Help:      "1 once both source datasets are loaded.",
		}),
	}

	prometheus.MustRegister(
		m.AggregationsTotal,
		m.AggregationErrors,
		m.AggregationDuration,
		m.AggregatedRegions,
		m.FitSkipped,
		m.RendersTotal,
		m.RenderDuration,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.DatasetRows,
		m.DatasetsLoaded,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AggregationsTotal:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mobility_growth", Name: "aggregations_total"}),
		AggregationErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mobility_growth", Name: "aggregation_errors_total"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "mobility_growth", Name: "aggregation_duration_seconds"}),
		AggregatedRegions:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "mobility_growth", Name: "aggregated_regions"}),
		FitSkipped:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mobility_growth", Name: "fit_skipped_total"}),
		RendersTotal:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mobility_growth", Name: "renders_total"}),
		RenderDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "mobility_growth", Name: "render_duration_seconds"}),
		SnapshotsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mobility_growth", Name: "snapshots_published_total"}),
		PublishErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mobility_growth", Name: "publish_errors_total"}),
		DatasetRows:         prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "mobility_growth", Name: "dataset_rows"}, []string{"dataset"}),
		DatasetsLoaded:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "mobility_growth", Name: "datasets_loaded"}),
	}
}
