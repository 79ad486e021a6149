package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline-wide metrics
	EventsInTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_events_in_total",
			Help: "Total number of events received by a component",
		},
		[]string{"component", "transform_id"},
	)

	EventsOutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_events_out_total",
			Help: "Total number of events emitted by a component",
		},
		[]string{"component", "transform_id"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_events_dropped_total",
			Help: "Total number of events dropped by reason",
		},
		[]string{"component", "transform_id", "reason"},
	)

	// Aggregating / reducing transform metrics
	ActiveWindowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fluxion_active_windows_total",
			Help: "Number of open windows or sessions currently held in memory",
		},
		[]string{"transform_id"},
	)

	StateCardinality = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fluxion_state_cardinality",
			Help: "Number of distinct group keys currently tracked",
		},
		[]string{"transform_id"},
	)

	StateByteSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fluxion_state_byte_size",
			Help: "Estimated accounted byte size of in-memory state",
		},
		[]string{"transform_id"},
	)

	FlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxion_flush_duration_seconds",
			Help:    "Time taken to flush a window or session",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transform_id"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_evictions_total",
			Help: "Total number of forced evictions due to capacity limits",
		},
		[]string{"transform_id", "reason"},
	)

	// Tail-sampling metrics
	TracesDecidedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_traces_decided_total",
			Help: "Total number of tail-sampling decisions, by outcome",
		},
		[]string{"transform_id", "decision"},
	)

	// Parser / interchange metrics
	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_parse_errors_total",
			Help: "Total number of payload parse failures",
		},
		[]string{"component", "payload_version"},
	)

	ConversionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_conversion_errors_total",
			Help: "Total number of metric/trace conversion failures",
		},
		[]string{"component", "direction"},
	)

	// State store metrics
	PersistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_persistence_errors_total",
			Help: "Total number of state store I/O errors, logged and continued",
		},
		[]string{"component", "op"},
	)

	PersistenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxion_persistence_latency_seconds",
			Help:    "State store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Source/sink delivery metrics
	BatchesAckedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxion_batches_acked_total",
			Help: "Total number of source batches acknowledged, by terminal status",
		},
		[]string{"source_id", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsInTotal,
		EventsOutTotal,
		EventsDroppedTotal,
		ActiveWindowsTotal,
		StateCardinality,
		StateByteSize,
		FlushDuration,
		EvictionsTotal,
		TracesDecidedTotal,
		ParseErrorsTotal,
		ConversionErrorsTotal,
		PersistenceErrorsTotal,
		PersistenceLatency,
		BatchesAckedTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
