package otlpmetrics

import (
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/log"
	"github.com/cuemby/fluxion/pkg/metrics"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"
)

// publishConversionError forwards a diagnostic event to cfg.Broker, if
// one is configured. No-op otherwise so Config.Broker stays optional.
func publishConversionError(cfg Config, direction, msg string) {
	if cfg.Broker == nil {
		return
	}
	cfg.Broker.Publish(&events.Event{
		ID:        uuid.New().String(),
		Kind:      events.KindConversionError,
		Severity:  events.SeverityWarn,
		Component: "otlpmetrics",
		Message:   msg,
		Fields:    map[string]string{"component_id": cfg.ComponentID, "direction": direction},
	})
}

// FromOTLP walks md and emits one internal LogEvent per data point.
// Exponential histogram data points are recorded nowhere: this package
// carries no lossy approximation of them, so they are silently skipped
// rather than emitted as a degraded event.
func FromOTLP(cfg Config, md pmetric.Metrics) []*event.LogEvent {
	cfg = cfg.withDefaults()
	logger := log.WithComponent("otlpmetrics")

	var out []*event.LogEvent
	rms := md.ResourceMetrics()
	for i := 0; i < rms.Len(); i++ {
		rm := rms.At(i)
		resourceVal := attrMapToValue(rm.Resource().Attributes())

		sms := rm.ScopeMetrics()
		for j := 0; j < sms.Len(); j++ {
			sm := sms.At(j)
			scopeVal := event.ObjectFrom(map[string]event.Value{
				"name":    event.String(sm.Scope().Name()),
				"version": event.String(sm.Scope().Version()),
			})

			ms := sm.Metrics()
			for k := 0; k < ms.Len(); k++ {
				m := ms.At(k)
				events, err := metricToEvents(cfg, m, resourceVal, scopeVal)
				if err != nil {
					metrics.ConversionErrorsTotal.WithLabelValues(cfg.ComponentID, "forward").Inc()
					logger.Warn().Err(err).Str("metric", m.Name()).Msg("dropping otlp metric point")
					publishConversionError(cfg, "forward", err.Error())
					continue
				}
				out = append(out, events...)
			}
		}
	}
	return out
}

func metricToEvents(cfg Config, m pmetric.Metric, resourceVal, scopeVal event.Value) ([]*event.LogEvent, error) {
	switch m.Type() {
	case pmetric.MetricTypeGauge:
		return gaugePoints(cfg, m, resourceVal, scopeVal)
	case pmetric.MetricTypeSum:
		return sumPoints(cfg, m, resourceVal, scopeVal)
	case pmetric.MetricTypeHistogram:
		return histogramPoints(cfg, m, resourceVal, scopeVal)
	case pmetric.MetricTypeSummary:
		return summaryPoints(cfg, m, resourceVal, scopeVal)
	case pmetric.MetricTypeExponentialHistogram:
		return nil, nil
	default:
		return nil, nil
	}
}

func gaugePoints(cfg Config, m pmetric.Metric, resourceVal, scopeVal event.Value) ([]*event.LogEvent, error) {
	dps := m.Gauge().DataPoints()
	out := make([]*event.LogEvent, 0, dps.Len())
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)
		val, ok := numberDataPointValue(dp)
		if !ok {
			continue
		}
		value := event.ObjectFrom(map[string]event.Value{
			"type":  event.String(string(typeGauge)),
			"value": event.Float(val),
		})
		ev := buildEvent(cfg, m, "absolute", value, dp.Timestamp().AsTime(), dp.Attributes(), resourceVal, scopeVal)
		setExemplars(ev, dp.Exemplars())
		out = append(out, ev)
	}
	return out, nil
}

func sumPoints(cfg Config, m pmetric.Metric, resourceVal, scopeVal event.Value) ([]*event.LogEvent, error) {
	sum := m.Sum()
	dps := sum.DataPoints()
	out := make([]*event.LogEvent, 0, dps.Len())
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)
		val, ok := numberDataPointValue(dp)
		if !ok {
			continue
		}

		var value event.Value
		kind := "incremental"
		if sum.IsMonotonic() {
			value = event.ObjectFrom(map[string]event.Value{
				"type":  event.String(string(typeCounter)),
				"value": event.Float(val),
			})
		} else {
			kind = "absolute"
			value = event.ObjectFrom(map[string]event.Value{
				"type":  event.String(string(typeGauge)),
				"value": event.Float(val),
			})
		}

		ev := buildEvent(cfg, m, kind, value, dp.Timestamp().AsTime(), dp.Attributes(), resourceVal, scopeVal)
		ev.Metadata.Set("original_type", event.String("sum"))
		ev.Metadata.Set("is_monotonic", event.Bool(sum.IsMonotonic()))
		ev.Metadata.Set("aggregation_temporality", event.String(temporalityString(sum.AggregationTemporality())))
		setExemplars(ev, dp.Exemplars())
		out = append(out, ev)
	}
	return out, nil
}

func histogramPoints(cfg Config, m pmetric.Metric, resourceVal, scopeVal event.Value) ([]*event.LogEvent, error) {
	hist := m.Histogram()
	dps := hist.DataPoints()
	out := make([]*event.LogEvent, 0, dps.Len())
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)

		// OTLP's BucketCounts has one more entry than ExplicitBounds: the
		// trailing +Inf overflow bucket. bucket[i] here covers everything
		// <= bounds[i], as a running cumulative count; the overflow count
		// (samples past the last bound) is kept separately.
		bounds := dp.ExplicitBounds()
		counts := dp.BucketCounts()
		buckets := make([]event.Value, 0, bounds.Len())
		var running uint64
		for b := 0; b < bounds.Len(); b++ {
			running += counts.At(b)
			buckets = append(buckets, bucketValue(Bucket{Count: running, Upper: bounds.At(b)}))
		}
		var overflow uint64
		if counts.Len() > bounds.Len() {
			overflow = counts.At(bounds.Len())
		}

		value := event.ObjectFrom(map[string]event.Value{
			"type":           event.String(string(typeAggregatedHistogram)),
			"buckets":        event.Array(buckets...),
			"overflow_count": event.Int(int64(overflow)),
			"count":          event.Int(int64(dp.Count())),
			"sum":            event.Float(dp.Sum()),
		})

		ev := buildEvent(cfg, m, temporalityKind(hist.AggregationTemporality()), value, dp.Timestamp().AsTime(), dp.Attributes(), resourceVal, scopeVal)
		ev.Metadata.Set("aggregation_temporality", event.String(temporalityString(hist.AggregationTemporality())))
		if dp.HasMin() {
			ev.Metadata.Set("min", event.Float(dp.Min()))
		}
		if dp.HasMax() {
			ev.Metadata.Set("max", event.Float(dp.Max()))
		}
		setExemplars(ev, dp.Exemplars())
		out = append(out, ev)
	}
	return out, nil
}

func summaryPoints(cfg Config, m pmetric.Metric, resourceVal, scopeVal event.Value) ([]*event.LogEvent, error) {
	dps := m.Summary().DataPoints()
	out := make([]*event.LogEvent, 0, dps.Len())
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)

		qvs := dp.QuantileValues()
		quantiles := make([]event.Value, 0, qvs.Len())
		for q := 0; q < qvs.Len(); q++ {
			qv := qvs.At(q)
			quantiles = append(quantiles, event.ObjectFrom(map[string]event.Value{
				"quantile": event.Float(qv.Quantile()),
				"value":    event.Float(qv.Value()),
			}))
		}

		value := event.ObjectFrom(map[string]event.Value{
			"type":      event.String(string(typeAggregatedSummary)),
			"quantiles": event.Array(quantiles...),
			"count":     event.Int(int64(dp.Count())),
			"sum":       event.Float(dp.Sum()),
		})

		ev := buildEvent(cfg, m, "absolute", value, dp.Timestamp().AsTime(), dp.Attributes(), resourceVal, scopeVal)
		out = append(out, ev)
	}
	return out, nil
}

func buildEvent(cfg Config, m pmetric.Metric, kind string, value event.Value, ts time.Time, attrs pcommon.Map, resourceVal, scopeVal event.Value) *event.LogEvent {
	msg := event.ObjectFrom(map[string]event.Value{
		"name":  event.String(m.Name()),
		"kind":  event.String(kind),
		"value": value,
		"tags":  tagsFromAttributes(attrs),
	})
	ev := event.NewLogEvent(event.Object())
	ev.WithMessagePath(cfg.MessagePath)
	ev.WithTimestampPath(cfg.TimestampPath)
	ev.SetMessage(msg)
	if !ts.IsZero() {
		ev.SetTimestamp(event.Timestamp(ts))
	}
	ev.Metadata.Set("data_provider", event.String("otlp"))
	if m.Unit() != "" {
		ev.Metadata.Set("unit", event.String(m.Unit()))
	}
	if m.Description() != "" {
		ev.Metadata.Set("description", event.String(m.Description()))
	}
	ev.Metadata.Set("resource", resourceVal)
	ev.Metadata.Set("scope", scopeVal)
	ev.Metadata.Set("attributes", attrMapToValue(attrs))
	return ev
}

func numberDataPointValue(dp pmetric.NumberDataPoint) (float64, bool) {
	switch dp.ValueType() {
	case pmetric.NumberDataPointValueTypeDouble:
		return dp.DoubleValue(), true
	case pmetric.NumberDataPointValueTypeInt:
		return float64(dp.IntValue()), true
	default:
		return 0, false
	}
}

func temporalityString(t pmetric.AggregationTemporality) string {
	if t == pmetric.AggregationTemporalityDelta {
		return "delta"
	}
	return "cumulative"
}

func temporalityKind(t pmetric.AggregationTemporality) string {
	if t == pmetric.AggregationTemporalityDelta {
		return "incremental"
	}
	return "absolute"
}

func bucketValue(b Bucket) event.Value {
	return event.ObjectFrom(map[string]event.Value{
		"count": event.Int(int64(b.Count)),
		"upper": event.Float(b.Upper),
	})
}

func setExemplars(ev *event.LogEvent, exemplars pmetric.ExemplarSlice) {
	if exemplars.Len() == 0 {
		return
	}
	out := make([]event.Value, 0, exemplars.Len())
	for i := 0; i < exemplars.Len(); i++ {
		ex := exemplars.At(i)
		var val float64
		switch ex.ValueType() {
		case pmetric.ExemplarValueTypeDouble:
			val = ex.DoubleValue()
		case pmetric.ExemplarValueTypeInt:
			val = float64(ex.IntValue())
		}
		out = append(out, event.ObjectFrom(map[string]event.Value{
			"value":      event.Float(val),
			"attributes": attrMapToValue(ex.FilteredAttributes()),
		}))
	}
	ev.Metadata.Set("exemplars", event.Array(out...))
}

func attrValueToEventValue(v pcommon.Value) event.Value {
	switch v.Type() {
	case pcommon.ValueTypeStr:
		return event.String(v.Str())
	case pcommon.ValueTypeBool:
		return event.Bool(v.Bool())
	case pcommon.ValueTypeInt:
		return event.Int(v.Int())
	case pcommon.ValueTypeDouble:
		return event.Float(v.Double())
	case pcommon.ValueTypeMap:
		return attrMapToValue(v.Map())
	case pcommon.ValueTypeSlice:
		s := v.Slice()
		vals := make([]event.Value, s.Len())
		for i := 0; i < s.Len(); i++ {
			vals[i] = attrValueToEventValue(s.At(i))
		}
		return event.Array(vals...)
	case pcommon.ValueTypeBytes:
		return event.Bytes(v.Bytes().AsRaw())
	default:
		return event.Null()
	}
}

func attrMapToValue(m pcommon.Map) event.Value {
	fields := make(map[string]event.Value, m.Len())
	m.Range(func(k string, v pcommon.Value) bool {
		fields[k] = attrValueToEventValue(v)
		return true
	})
	return event.ObjectFrom(fields)
}

// tagsFromAttributes flattens attrs into a string-valued tag object,
// dropping any attribute whose string form is empty.
func tagsFromAttributes(attrs pcommon.Map) event.Value {
	obj := event.Object()
	attrs.Range(func(k string, v pcommon.Value) bool {
		s := v.AsString()
		if s == "" {
			return true
		}
		obj.SetField(k, event.String(s))
		return true
	})
	return obj
}
