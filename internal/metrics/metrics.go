package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "analogfinder"

// Metrics holds the Prometheus collectors for dataset loading, searching and
// rendering.
type Metrics struct {
	// Dataset metrics.
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,error}
	DatasetLoadDuration prometheus.Histogram
	DatasetLoadedAt     prometheus.Gauge
	DatasetRecords      prometheus.Gauge
	IndexValues         *prometheus.GaugeVec // labels: index
	IndexSkipped        *prometheus.GaugeVec // labels: index

	// Search metrics.
	Searches      *prometheus.CounterVec // labels: outcome={match,empty,invalid,error}
	SearchMatches prometheus.Histogram

	// Output metrics.
	ChartRenderDuration *prometheus.HistogramVec // labels: format={svg,png}
	Exports             *prometheus.CounterVec   // labels: format
	SummaryPublishes    *prometheus.CounterVec   // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset loads by outcome.",
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of reading, parsing and storing all index sources.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DatasetLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time of the last successful dataset load.",
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of (year, month) records in the loaded dataset.",
		}),
		IndexValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_values",
			Help:      "Monthly values loaded per climate index.",
		}, []string{"index"}),
		IndexSkipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_skipped_values",
			Help:      "Malformed values skipped per climate index during the last load.",
		}, []string{"index"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Analog searches by outcome.",
		}, []string{"outcome"}),
		SearchMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_matches",
			Help:      "Number of analog years returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 15, 20, 50},
		}),
		ChartRenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_render_duration_seconds",
			Help:      "Time spent rendering index charts.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"format"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Result exports by format.",
		}, []string{"format"}),
		SummaryPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_publishes_total",
			Help:      "Dataset summary publishes to MQTT by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.DatasetLoadedAt,
		m.DatasetRecords,
		m.IndexValues,
		m.IndexSkipped,
		m.Searches,
		m.SearchMatches,
		m.ChartRenderDuration,
		m.Exports,
		m.SummaryPublishes,
	}
}
