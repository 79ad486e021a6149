/*
Package otlpmetrics converts between OTLP metric data points
(go.opentelemetry.io/collector/pdata/pmetric) and Fluxion's internal metric
event shape.

Forward (FromOTLP) walks ResourceMetrics -> ScopeMetrics -> Metric ->
DataPoint and emits one event per data point: message.value carries the
semantic value, message.tags the data point's attributes (empty values
dropped), and message.kind is "absolute" or "incremental" depending on
whether the source was a monotonic sum. Everything needed to losslessly
reconstruct the OTLP shape (resource, scope, attributes, exemplars,
explicit bounds) rides along as side-channel metadata rather than in the
event payload. Exponential histogram data points are skipped: they emit
no event and nothing of them is recorded.

Backward (ToOTLP) takes a batch of internal metric events, which may span
several resources, regroups them by resource -> scope -> (kind, name,
temporality, monotonicity), fills in temporality/monotonicity defaults
where metadata doesn't already pin them down, and emits an OTLP
pmetric.Metrics. A metric's unit comes from the event's "unit" metadata
only; ToOTLP does not infer a unit from the metric name. Conversion
failures are per-data-point: one bad point is dropped and logged, the
rest of the batch proceeds.
*/
package otlpmetrics
