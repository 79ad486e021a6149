package otlpmetrics

import (
	"errors"
	"time"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/log"
	"github.com/cuemby/fluxion/pkg/metrics"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"
)

var (
	errMissingMessage  = errors.New("otlpmetrics: event has no message")
	errMissingValue    = errors.New("otlpmetrics: message has no numeric value")
	errUnsupportedType = errors.New("otlpmetrics: unsupported internal metric type")
)

// ToOTLP regroups events (which may span several resources/scopes, e.g. a
// batch read back off a state store) into an OTLP pmetric.Metrics. A data
// point that can't be converted is logged and dropped; the rest of the
// batch still converts.
func ToOTLP(cfg Config, events []*event.LogEvent) pmetric.Metrics {
	cfg = cfg.withDefaults()
	logger := log.WithComponent("otlpmetrics")

	md := pmetric.NewMetrics()
	for _, rg := range groupEvents(events) {
		rm := md.ResourceMetrics().AppendEmpty()
		valueToAttrMap(rg.resource, rm.Resource().Attributes())

		for _, sg := range rg.scopes {
			sm := rm.ScopeMetrics().AppendEmpty()
			sm.Scope().SetName(sg.scopeName)
			sm.Scope().SetVersion(sg.scopeVersion)

			for id, evs := range sg.metrics {
				if len(evs) == 0 {
					continue
				}
				m := sm.Metrics().AppendEmpty()
				m.SetName(id.name)
				applyMetadata(m, evs[0])
				initContainer(m, id)
				// A gauge that FromOTLP derived from a non-monotonic Sum goes
				// back out as a non-monotonic Sum; appendDataPoint writes its
				// points into m.Sum().
				if id.kind == typeGauge {
					if ot, ok := evs[0].Metadata.Get("original_type"); ok {
						if s, _ := ot.AsString(); s == "sum" {
							sum := m.SetEmptySum()
							sum.SetAggregationTemporality(pmetric.AggregationTemporalityCumulative)
							if id.temporality == "delta" {
								sum.SetAggregationTemporality(pmetric.AggregationTemporalityDelta)
							}
						}
					}
				}

				for _, ev := range evs {
					if err := appendDataPoint(cfg, m, id, ev); err != nil {
						metrics.ConversionErrorsTotal.WithLabelValues(cfg.ComponentID, "backward").Inc()
						logger.Warn().Err(err).Str("metric", id.name).Msg("dropping internal metric point")
						publishConversionError(cfg, "backward", err.Error())
					}
				}
			}
		}
	}
	return md
}

func applyMetadata(m pmetric.Metric, ev *event.LogEvent) {
	if unit, ok := ev.Metadata.Get("unit"); ok {
		if s, isStr := unit.AsString(); isStr {
			m.SetUnit(s)
		}
	}
	if desc, ok := ev.Metadata.Get("description"); ok {
		if s, isStr := desc.AsString(); isStr {
			m.SetDescription(s)
		}
	}
}

// initContainer sets the metric's OTLP data-type oneof exactly once, before
// any data points are appended to it.
func initContainer(m pmetric.Metric, id metricIdentity) {
	temporality := pmetric.AggregationTemporalityCumulative
	if id.temporality == "delta" {
		temporality = pmetric.AggregationTemporalityDelta
	}

	switch id.kind {
	case typeCounter:
		sum := m.SetEmptySum()
		sum.SetIsMonotonic(true)
		sum.SetAggregationTemporality(temporality)
	case typeGauge, typeSet:
		m.SetEmptyGauge()
	case typeDistribution, typeAggregatedHistogram:
		hist := m.SetEmptyHistogram()
		hist.SetAggregationTemporality(temporality)
	case typeAggregatedSummary:
		m.SetEmptySummary()
	default:
		m.SetEmptyGauge()
	}
}

func appendDataPoint(cfg Config, m pmetric.Metric, id metricIdentity, ev *event.LogEvent) error {
	msg, ok := ev.Message()
	if !ok {
		return errMissingMessage
	}
	valueObj, ok := msg.Field("value")
	if !ok {
		return errMissingValue
	}
	ts, _ := ev.Timestamp()
	tsTime, _ := ts.AsTimestamp()

	originalType, _ := ev.Metadata.Get("original_type")
	originalTypeStr, _ := originalType.AsString()

	switch id.kind {
	case typeGauge:
		if originalTypeStr == "sum" {
			return appendSumPoint(m, ev, valueObj, tsTime)
		}
		return appendGaugePoint(m, ev, valueObj, tsTime)
	case typeSet:
		return appendGaugePoint(m, ev, valueObj, tsTime)
	case typeCounter:
		return appendSumPoint(m, ev, valueObj, tsTime)
	case typeDistribution:
		return appendDistributionPoint(cfg, m, ev, valueObj, tsTime)
	case typeAggregatedHistogram:
		return appendAggregatedHistogramPoint(m, ev, valueObj, tsTime)
	case typeAggregatedSummary:
		return appendAggregatedSummaryPoint(m, ev, valueObj, tsTime)
	default:
		return errUnsupportedType
	}
}

func appendGaugePoint(m pmetric.Metric, ev *event.LogEvent, valueObj event.Value, ts time.Time) error {
	val, ok := numericField(valueObj, "value")
	if !ok {
		return errMissingValue
	}
	dp := m.Gauge().DataPoints().AppendEmpty()
	dp.SetDoubleValue(val)
	finishDataPoint(dp.Attributes(), dp.SetTimestamp, ev, ts)
	return nil
}

func appendSumPoint(m pmetric.Metric, ev *event.LogEvent, valueObj event.Value, ts time.Time) error {
	val, ok := numericField(valueObj, "value")
	if !ok {
		return errMissingValue
	}
	dp := m.Sum().DataPoints().AppendEmpty()
	dp.SetDoubleValue(val)
	finishDataPoint(dp.Attributes(), dp.SetTimestamp, ev, ts)
	return nil
}

// appendDistributionPoint converts a distribution value (raw samples) into
// an OTLP HistogramDataPoint by exact-counting the samples against the
// metric's bounds and attaching DDSketch quantile estimates as exemplars,
// since OTLP histograms have no quantile field of their own.
func appendDistributionPoint(cfg Config, m pmetric.Metric, ev *event.LogEvent, valueObj event.Value, ts time.Time) error {
	samplesVal, ok := valueObj.Field("samples")
	if !ok {
		return errMissingValue
	}
	samplesArr, _ := samplesVal.AsArray()
	samples := make([]float64, 0, len(samplesArr))
	for _, s := range samplesArr {
		if f, isNum := s.AsNumber(); isNum {
			samples = append(samples, f)
		}
	}
	if len(samples) == 0 {
		return errMissingValue
	}

	bounds := defaultHistogramBounds
	if boundsVal, ok := ev.Metadata.Get("explicit_bounds"); ok {
		if arr, isArr := boundsVal.AsArray(); isArr {
			parsed := make([]float64, 0, len(arr))
			for _, b := range arr {
				if f, isNum := b.AsNumber(); isNum {
					parsed = append(parsed, f)
				}
			}
			if len(parsed) > 0 {
				bounds = parsed
			}
		}
	}

	buckets, count, sum := samplesToBuckets(samples, bounds)

	dp := m.Histogram().DataPoints().AppendEmpty()
	dp.ExplicitBounds().FromRaw(bounds)
	counts := make([]uint64, len(buckets)+1)
	var prev uint64
	for i, b := range buckets {
		counts[i] = b.Count - prev
		prev = b.Count
	}
	counts[len(buckets)] = count - prev
	dp.BucketCounts().FromRaw(counts)
	dp.SetCount(count)
	dp.SetSum(sum)
	finishDataPoint(dp.Attributes(), dp.SetTimestamp, ev, ts)

	if quantiles, err := ddsketchQuantiles(samples, cfg.Quantiles); err == nil {
		for _, q := range quantiles {
			ex := dp.Exemplars().AppendEmpty()
			ex.SetDoubleValue(q.Value)
			ex.FilteredAttributes().PutStr("quantile", quantileLabel(q.Quantile))
			ex.SetTimestamp(pcommon.NewTimestampFromTime(ts))
		}
	}
	return nil
}

func appendAggregatedHistogramPoint(m pmetric.Metric, ev *event.LogEvent, valueObj event.Value, ts time.Time) error {
	bucketsVal, ok := valueObj.Field("buckets")
	if !ok {
		return errMissingValue
	}
	bucketsArr, _ := bucketsVal.AsArray()

	bounds := make([]float64, 0, len(bucketsArr))
	counts := make([]uint64, 0, len(bucketsArr)+1)
	var prevCumulative uint64
	for _, b := range bucketsArr {
		upper, _ := numericField(b, "upper")
		cumulative, _ := numericField(b, "count")
		bounds = append(bounds, upper)
		counts = append(counts, uint64(cumulative)-prevCumulative)
		prevCumulative = uint64(cumulative)
	}

	overflow, _ := numericField(valueObj, "overflow_count")
	count, _ := numericField(valueObj, "count")
	sum, _ := numericField(valueObj, "sum")
	counts = append(counts, uint64(overflow))

	dp := m.Histogram().DataPoints().AppendEmpty()
	dp.ExplicitBounds().FromRaw(bounds)
	dp.BucketCounts().FromRaw(counts)
	dp.SetCount(uint64(count))
	dp.SetSum(sum)
	if min, ok := ev.Metadata.Get("min"); ok {
		if f, isFloat := min.AsFloat(); isFloat {
			dp.SetMin(f)
		}
	}
	if max, ok := ev.Metadata.Get("max"); ok {
		if f, isFloat := max.AsFloat(); isFloat {
			dp.SetMax(f)
		}
	}
	finishDataPoint(dp.Attributes(), dp.SetTimestamp, ev, ts)
	return nil
}

func appendAggregatedSummaryPoint(m pmetric.Metric, ev *event.LogEvent, valueObj event.Value, ts time.Time) error {
	quantilesVal, ok := valueObj.Field("quantiles")
	if !ok {
		return errMissingValue
	}
	quantilesArr, _ := quantilesVal.AsArray()

	count, _ := numericField(valueObj, "count")
	sum, _ := numericField(valueObj, "sum")

	dp := m.Summary().DataPoints().AppendEmpty()
	dp.SetCount(uint64(count))
	dp.SetSum(sum)
	qvs := dp.QuantileValues()
	for _, q := range quantilesArr {
		quantile, _ := numericField(q, "quantile")
		value, _ := numericField(q, "value")
		qv := qvs.AppendEmpty()
		qv.SetQuantile(quantile)
		qv.SetValue(value)
	}
	finishDataPoint(dp.Attributes(), dp.SetTimestamp, ev, ts)
	return nil
}

func finishDataPoint(attrs pcommon.Map, setTimestamp func(pcommon.Timestamp), ev *event.LogEvent, ts time.Time) {
	msg, _ := ev.Message()
	tagsVal, _ := msg.Field("tags")
	valueToAttrMap(tagsVal, attrs)
	if !ts.IsZero() {
		setTimestamp(pcommon.NewTimestampFromTime(ts))
	}
}

func numericField(obj event.Value, key string) (float64, bool) {
	v, ok := obj.Field(key)
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

func quantileLabel(q float64) string {
	switch {
	case q >= 0.99:
		return "p99"
	case q >= 0.9:
		return "p90"
	case q >= 0.5:
		return "p50"
	default:
		return "p0"
	}
}

func valueToAttrMap(v event.Value, dst pcommon.Map) {
	if v.Kind() != event.KindObject {
		return
	}
	for _, k := range v.Keys() {
		field, _ := v.Field(k)
		setAttrValue(dst.PutEmpty(k), field)
	}
}

func setAttrValue(dst pcommon.Value, v event.Value) {
	switch v.Kind() {
	case event.KindBytes:
		s, _ := v.AsString()
		dst.SetStr(s)
	case event.KindBoolean:
		b, _ := v.AsBool()
		dst.SetBool(b)
	case event.KindInteger:
		i, _ := v.AsInt()
		dst.SetInt(i)
	case event.KindFloat:
		f, _ := v.AsFloat()
		dst.SetDouble(f)
	case event.KindArray:
		arr, _ := v.AsArray()
		s := dst.SetEmptySlice()
		s.EnsureCapacity(len(arr))
		for _, e := range arr {
			setAttrValue(s.AppendEmpty(), e)
		}
	case event.KindObject:
		m := dst.SetEmptyMap()
		valueToAttrMap(v, m)
	}
}
