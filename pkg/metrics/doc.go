/*
Package metrics provides Prometheus metrics collection and exposition for
Fluxion.

The metrics package defines and registers every Fluxion metric using the
Prometheus client library, giving observability into throughput, dropped
events, in-memory state size, flush latency, and delivery status across
sources, transforms, and sinks. Metrics are exposed via an HTTP endpoint
for scraping.

# Metric families

  - fluxion_events_in_total / fluxion_events_out_total / fluxion_events_dropped_total:
    per-component, per-transform_id throughput and loss.
  - fluxion_active_windows_total / fluxion_state_cardinality / fluxion_state_byte_size:
    in-memory footprint of the aggregating and reducing transforms.
  - fluxion_flush_duration_seconds / fluxion_evictions_total: window/session
    lifecycle timing and capacity-driven evictions.
  - fluxion_traces_decided_total: tail-sampling decisions by outcome.
  - fluxion_parse_errors_total / fluxion_conversion_errors_total: parser and
    interchange failures.
  - fluxion_persistence_errors_total / fluxion_persistence_latency_seconds:
    state store health.
  - fluxion_batches_acked_total: source-side delivery outcomes reported
    through the finalizer fabric.

# Usage

	timer := metrics.NewTimer()
	// ... flush a window ...
	timer.ObserveDurationVec(metrics.FlushDuration, transformID)

	metrics.EventsDroppedTotal.WithLabelValues("aggregate", transformID, "capacity_exceeded").Inc()

Expose the registry over HTTP:

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
