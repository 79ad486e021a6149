package ddparser

import "github.com/cuemby/fluxion/pkg/event"

var spanStringFields = []string{"service", "name", "resource", "type"}

// transformSpan normalizes one Datadog span object. traceID and spanID are
// required; a span missing either is dropped. parentID/start/duration/error
// are optional. meta, metrics, and meta_struct are each filtered down to the
// one Value kind they're allowed to carry, and omitted entirely if that
// leaves them empty.
func transformSpan(input event.Value) (event.Value, bool) {
	traceID, hasTraceID := input.Field("traceID")
	spanID, hasSpanID := input.Field("spanID")

	traceIDVal, traceOK := int64(0), false
	if hasTraceID {
		traceIDVal, traceOK = coerceInt(traceID)
	}
	spanIDVal, spanOK := int64(0), false
	if hasSpanID {
		spanIDVal, spanOK = coerceInt(spanID)
	}
	if !traceOK || !spanOK {
		return event.Value{}, false
	}

	span := event.Object()
	for _, key := range spanStringFields {
		if v, ok := input.Field(key); ok {
			if _, isString := v.AsString(); isString {
				span.SetField(key, v)
			}
		}
	}

	span.SetField("trace_id", event.Int(traceIDVal))
	span.SetField("span_id", event.Int(spanIDVal))

	if v, ok := input.Field("parentID"); ok {
		if parentID, ok := coerceInt(v); ok {
			span.SetField("parent_id", event.Int(parentID))
		}
	}
	if v, ok := input.Field("start"); ok {
		if ts, ok := parseTimestampNanos(v); ok {
			span.SetField("start", ts)
		}
	}
	for _, key := range []string{"duration", "error"} {
		if v, ok := input.Field(key); ok {
			if n, ok := coerceInt(v); ok {
				span.SetField(key, event.Int(n))
			}
		}
	}

	if meta, ok := input.Field("meta"); ok && meta.Kind() == event.KindObject {
		if filtered := filterObject(meta, func(v event.Value) (event.Value, bool) {
			if _, ok := v.AsString(); ok {
				return v, true
			}
			return event.Value{}, false
		}); filtered.Len() > 0 {
			span.SetField("meta", filtered)
		}
	}
	if metrics, ok := input.Field("metrics"); ok && metrics.Kind() == event.KindObject {
		if filtered := filterObject(metrics, func(v event.Value) (event.Value, bool) {
			if f, ok := coerceFloat(v); ok {
				return event.Float(f), true
			}
			return event.Value{}, false
		}); filtered.Len() > 0 {
			span.SetField("metrics", filtered)
		}
	}
	if metaStruct, ok := input.Field("metaStruct"); ok && metaStruct.Kind() == event.KindObject {
		if filtered := filterObject(metaStruct, func(v event.Value) (event.Value, bool) {
			if _, ok := v.AsBytes(); ok {
				return v, true
			}
			return event.Value{}, false
		}); filtered.Len() > 0 {
			span.SetField("meta_struct", filtered)
		}
	}

	return span, true
}

// filterObject maps every field of an object Value through convert,
// keeping only the fields convert accepts.
func filterObject(obj event.Value, convert func(event.Value) (event.Value, bool)) event.Value {
	out := event.Object()
	for _, key := range obj.Keys() {
		v, _ := obj.Field(key)
		if mapped, ok := convert(v); ok {
			out.SetField(key, mapped)
		}
	}
	return out
}

// filterSpanObjects keeps only the object-shaped elements of items,
// transforming each through transformSpan.
func filterSpanObjects(items []event.Value) []event.Value {
	var out []event.Value
	for _, item := range items {
		if item.Kind() != event.KindObject {
			continue
		}
		if span, ok := transformSpan(item); ok {
			out = append(out, span)
		}
	}
	return out
}
