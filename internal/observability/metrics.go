package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taf_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Entry parsing metrics.
	EntriesParsed   prometheus.Counter
	EntryFailures   *prometheus.CounterVec // labels: kind={malformed_header,unrecognized_token,...}
	EntriesPerCycle prometheus.Histogram
	ParseCache      *prometheus.CounterVec // labels: result={hit,miss}

	// Forecast store metrics.
	StoreOperations *prometheus.CounterVec // labels: operation={put,get}, outcome={success,error,not_found,rejected}
	StoreEnabled    prometheus.Gauge
}

var (
	batchSizeBuckets       = []float64{1, 5, 10, 20, 30, 40, 50, 75, 100}
	batchDurationBuckets   = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10}
	entriesPerCycleBuckets = []float64{1, 10, 50, 100, 250, 500, 1000, 2000, 4000}
)

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      help("Total messages read from the source topic."),
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      help("Total forecast and failure messages written to the sink topics."),
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      help("Total source messages that could not be transformed."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of messages per batch extracted from Kafka."),
			Buckets:   batchSizeBuckets,
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-transform-load cycle."),
			Buckets:   batchDurationBuckets,
		}),
		EntriesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_parsed_total",
			Help:      help("Bulletin entries parsed into forecasts."),
		}),
		EntryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_failures_total",
			Help:      help("Bulletin entries that failed to parse, by error kind."),
		}, []string{"kind"}),
		EntriesPerCycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entries_per_cycle",
			Help:      help("Number of bulletin entries found in each source message."),
			Buckets:   entriesPerCycleBuckets,
		}),
		ParseCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_cache_total",
			Help:      help("Parse cache lookups by result."),
		}, []string{"result"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      help("Forecast store operations by operation and outcome."),
		}, []string{"operation", "outcome"}),
		StoreEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_enabled",
			Help:      help("1 when the latest-forecast store is enabled, 0 otherwise."),
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EntriesParsed,
		m.EntryFailures,
		m.EntriesPerCycle,
		m.ParseCache,
		m.StoreOperations,
		m.StoreEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
