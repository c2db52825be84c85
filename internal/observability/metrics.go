package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert pipeline, sensor listener, and dispatcher.
type Metrics struct {
	AlertsReceived      prometheus.Counter
	AlertsStored        prometheus.Counter
	AlertUpsertFailures prometheus.Counter
	BatchDecodeErrors   prometheus.Counter
	StagesSkipped       *prometheus.CounterVec // labels: stage={persist,disseminate}
	PipelineRunning     prometheus.Gauge

	AlertsPublished prometheus.Counter
	PublishErrors   prometheus.Counter

	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Sensor telemetry metrics.
	SensorMessages    prometheus.Counter
	SensorRejected    prometheus.Counter
	SensorStoreErrors prometheus.Counter

	// Sensor-alert dispatch metrics.
	DispatchPublished  prometheus.Counter
	DispatchSuppressed prometheus.Counter
	DispatchErrors     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AlertsReceived,
		m.AlertsStored,
		m.AlertUpsertFailures,
		m.BatchDecodeErrors,
		m.StagesSkipped,
		m.PipelineRunning,
		m.AlertsPublished,
		m.PublishErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SensorMessages,
		m.SensorRejected,
		m.SensorStoreErrors,
		m.DispatchPublished,
		m.DispatchSuppressed,
		m.DispatchErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AlertsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "alerts_received_total",
			Help:      "Total alert records received from the feed.",
		}),
		AlertsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "alerts_stored_total",
			Help:      "Total alert rows inserted or updated.",
		}),
		AlertUpsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "alert_upsert_failures_total",
			Help:      "Total per-record upsert rejections and errors.",
		}),
		BatchDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "batch_decode_errors_total",
			Help:      "Total undecodable feed payloads.",
		}),
		StagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "stages_skipped_total",
			Help:      "Pipeline stages skipped because a collaborator is not configured.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cap_pipeline",
			Name:      "running",
			Help:      "1 when the ingest loop is active, 0 when shut down.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "alerts_published_total",
			Help:      "Total alerts fanned out to category topics.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "publish_errors_total",
			Help:      "Total failed category topic publishes.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cap_pipeline",
			Name:      "batch_size",
			Help:      "Alert records per ingested batch.",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 250, 500},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cap_pipeline",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete persist-categorize-disseminate cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SensorMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "sensor_messages_total",
			Help:      "Total sensor telemetry messages received.",
		}),
		SensorRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "sensor_messages_rejected_total",
			Help:      "Sensor messages dropped for having no identifier or invalid JSON.",
		}),
		SensorStoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "sensor_store_errors_total",
			Help:      "Sensor readings that failed to persist.",
		}),
		DispatchPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "dispatch_published_total",
			Help:      "Sensor-alert match notifications published.",
		}),
		DispatchSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "dispatch_suppressed_total",
			Help:      "Sensor-alert matches suppressed as already notified.",
		}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_pipeline",
			Name:      "dispatch_errors_total",
			Help:      "Failed sensor-alert match publishes.",
		}),
	}
}
