package event

import "time"

// MetricKind distinguishes a counter-like running total (Incremental,
// delta since last report) from a point-in-time reading (Absolute).
type MetricKind int

const (
	Absolute MetricKind = iota
	Incremental
)

func (k MetricKind) String() string {
	if k == Incremental {
		return "incremental"
	}
	return "absolute"
}

// HistogramStatistic records whether a Distribution's samples should be
// summarized as a histogram or as client-side quantiles.
type HistogramStatistic int

const (
	Histogram HistogramStatistic = iota
	Summary
)

// Sample is a single (value, rate) pair contributing to a Distribution,
// where rate is the number of original observations this sample
// represents (client-side pre-aggregation).
type Sample struct {
	Value float64
	Rate  uint32
}

// Bucket is one (upper_limit, count) pair of an AggregatedHistogram.
type Bucket struct {
	UpperLimit float64
	Count      uint64
}

// Quantile is one (quantile, value) pair of an AggregatedSummary.
type Quantile struct {
	Quantile float64
	Value    float64
}

// MetricValueKind discriminates the variant held by a MetricValue.
type MetricValueKind int

const (
	MetricCounter MetricValueKind = iota
	MetricGauge
	MetricSet
	MetricDistribution
	MetricAggregatedHistogram
	MetricAggregatedSummary
	MetricSketch
)

// MetricValue is a tagged variant over the shapes a Metric's reading can
// take. Only the fields relevant to Kind are populated; this mirrors
// Value's tagged-union approach rather than modeling each shape as its own
// Go type behind an interface, so MetricValue stays a plain, cloneable,
// comparable-by-convention struct.
type MetricValue struct {
	Kind MetricValueKind

	CounterValue float64
	GaugeValue   float64
	SetValues    []string

	Samples            []Sample
	DistributionStat   HistogramStatistic
	HistogramBuckets   []Bucket
	HistogramCount     uint64
	HistogramSum       float64
	SummaryQuantiles   []Quantile
	SummaryCount       uint64
	SummarySum         float64

	// SketchBytes holds an opaque DDSketch encoding for the Sketch
	// variant; pkg/otlpmetrics and pkg/ddparser populate and interpret
	// it via github.com/DataDog/sketches-go rather than this package
	// depending on that codec directly.
	SketchBytes []byte
}

func CounterValue(v float64) MetricValue { return MetricValue{Kind: MetricCounter, CounterValue: v} }
func GaugeValue(v float64) MetricValue   { return MetricValue{Kind: MetricGauge, GaugeValue: v} }
func SetValue(values ...string) MetricValue {
	return MetricValue{Kind: MetricSet, SetValues: values}
}

func DistributionValue(samples []Sample, stat HistogramStatistic) MetricValue {
	return MetricValue{Kind: MetricDistribution, Samples: samples, DistributionStat: stat}
}

func AggregatedHistogramValue(buckets []Bucket, count uint64, sum float64) MetricValue {
	return MetricValue{Kind: MetricAggregatedHistogram, HistogramBuckets: buckets, HistogramCount: count, HistogramSum: sum}
}

func AggregatedSummaryValue(quantiles []Quantile, count uint64, sum float64) MetricValue {
	return MetricValue{Kind: MetricAggregatedSummary, SummaryQuantiles: quantiles, SummaryCount: count, SummarySum: sum}
}

func SketchValue(encoded []byte) MetricValue {
	return MetricValue{Kind: MetricSketch, SketchBytes: encoded}
}

// Metric is a named, tagged reading with a MetricValue payload and an
// arbitrary bag for provider-specific fields (OTLP exemplars,
// bucket_counts, explicit_bounds, aggregation_temporality, ...) that have
// no home in the core shape but must survive a round trip.
type Metric struct {
	Name      string
	Kind      MetricKind
	Tags      map[string]string
	Timestamp *time.Time
	Value     MetricValue
	Arbitrary map[string]Value

	Metadata Metadata
}

// NewMetric returns a Metric with empty tags/metadata, ready for the
// caller to populate Value.
func NewMetric(name string, kind MetricKind) *Metric {
	return &Metric{Name: name, Kind: kind, Tags: make(map[string]string), Metadata: NewMetadata()}
}

// SetTag assigns a tag, dropping it outright if val is empty: empty-string
// tag values are semantically absent and must not survive ingress.
func (m *Metric) SetTag(key, val string) {
	if val == "" {
		delete(m.Tags, key)
		return
	}
	m.Tags[key] = val
}

// SetArbitrary stores a provider-specific side field.
func (m *Metric) SetArbitrary(key string, val Value) {
	if m.Arbitrary == nil {
		m.Arbitrary = make(map[string]Value)
	}
	m.Arbitrary[key] = val
}

// Arb retrieves a provider-specific side field.
func (m *Metric) Arb(key string) (Value, bool) {
	v, ok := m.Arbitrary[key]
	return v, ok
}

// Clone returns a deep copy, sharing metadata finalizers per Metadata.Clone.
func (m *Metric) Clone() *Metric {
	out := &Metric{Name: m.Name, Kind: m.Kind, Metadata: m.Metadata.Clone()}
	out.Tags = make(map[string]string, len(m.Tags))
	for k, v := range m.Tags {
		out.Tags[k] = v
	}
	if m.Timestamp != nil {
		t := *m.Timestamp
		out.Timestamp = &t
	}
	out.Value = m.Value
	out.Value.SetValues = append([]string(nil), m.Value.SetValues...)
	out.Value.Samples = append([]Sample(nil), m.Value.Samples...)
	out.Value.HistogramBuckets = append([]Bucket(nil), m.Value.HistogramBuckets...)
	out.Value.SummaryQuantiles = append([]Quantile(nil), m.Value.SummaryQuantiles...)
	out.Value.SketchBytes = append([]byte(nil), m.Value.SketchBytes...)
	if m.Arbitrary != nil {
		out.Arbitrary = make(map[string]Value, len(m.Arbitrary))
		for k, v := range m.Arbitrary {
			out.Arbitrary[k] = v
		}
	}
	return out
}
