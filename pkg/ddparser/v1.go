package ddparser

import "github.com/cuemby/fluxion/pkg/event"

// buildV0Traces implements the legacy payload shape: an APITrace object
// plus an optional list of dropped transactions, each transaction treated
// as a span in its own right.
func buildV0Traces(apiTrace event.Value) ([]event.Value, error) {
	var roots []event.Value

	env, hasEnv := optString(apiTrace.Field("env"))
	hostName, hasHost := optString(apiTrace.Field("hostName"))

	if transactions, ok := apiTrace.Field("transactions"); ok && transactions.Kind() == event.KindArray {
		items, _ := transactions.AsArray()
		for _, txn := range items {
			if txn.Kind() != event.KindObject {
				continue
			}
			span, ok := transformSpan(txn)
			if !ok {
				continue
			}
			root := event.Object()
			root.SetField("source_type", event.String("datadog_agent"))
			root.SetField("payload_version", event.String("v1"))
			if hasEnv {
				root.SetField("env", event.String(env))
			}
			if hasHost {
				root.SetField("host", event.String(hostName))
			}
			root.SetField("dropped", event.Bool(true))
			root.SetField("spans", event.Array(span))
			roots = append(roots, root)
		}
	}

	_, hasTraceID := apiTrace.Field("traceID")
	_, hasStartTime := apiTrace.Field("startTime")
	_, hasEndTime := apiTrace.Field("endTime")
	_, hasSpans := apiTrace.Field("spans")
	present := hasTraceID || hasStartTime || hasEndTime || hasSpans

	if present {
		root := event.Object()
		root.SetField("source_type", event.String("datadog_agent"))
		root.SetField("payload_version", event.String("v1"))
		if hasEnv {
			root.SetField("env", event.String(env))
		}
		if hasHost {
			root.SetField("host", event.String(hostName))
		}
		if v, ok := apiTrace.Field("traceID"); ok {
			if traceID, ok := coerceInt(v); ok {
				root.SetField("trace_id", event.Int(traceID))
			}
		}
		if v, ok := apiTrace.Field("startTime"); ok {
			if ts, ok := parseTimestampNanos(v); ok {
				root.SetField("start_time", ts)
			}
		}
		if v, ok := apiTrace.Field("endTime"); ok {
			if ts, ok := parseTimestampNanos(v); ok {
				root.SetField("end_time", ts)
			}
		}
		if spans, ok := apiTrace.Field("spans"); ok && spans.Kind() == event.KindArray {
			items, _ := spans.AsArray()
			transformed := filterSpanObjects(items)
			if len(transformed) > 0 {
				root.SetField("spans", event.Array(transformed...))
			}
		}
		roots = append(roots, root)
	}

	return roots, nil
}
