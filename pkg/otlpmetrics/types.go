package otlpmetrics

// metricType is the internal metric value's discriminant, carried at
// message.value.type.
type metricType string

const (
	typeGauge               metricType = "gauge"
	typeCounter             metricType = "counter"
	typeSet                 metricType = "set"
	typeDistribution        metricType = "distribution"
	typeAggregatedHistogram metricType = "aggregated_histogram"
	typeAggregatedSummary   metricType = "aggregated_summary"
)

// metricKind is carried at message.kind: whether successive points replace
// the prior value (absolute) or accumulate into it (incremental).
type metricKind string

const (
	kindAbsolute    metricKind = "absolute"
	kindIncremental metricKind = "incremental"
)

// Bucket is one explicit-bounds histogram bucket: every value <= Upper and
// > the previous bucket's Upper falls in this bucket.
type Bucket struct {
	Count uint64
	Upper float64
}

// Quantile is one summary quantile estimate.
type Quantile struct {
	Quantile float64
	Value    float64
}
