package ddparser

import (
	"math"

	"github.com/cuemby/fluxion/pkg/event"
)

// buildV1Traces implements the current payload shape: a TracerPayload
// carrying one or more chunks, each chunk becoming its own trace event
// with the payload-level fields (env, host, versions, TPS) copied onto it.
func buildV1Traces(tracerPayload event.Value) ([]event.Value, error) {
	chunksVal, ok := tracerPayload.Field("chunks")
	if !ok || chunksVal.Kind() != event.KindArray {
		return nil, nil
	}
	chunks, _ := chunksVal.AsArray()

	var payloadTags event.Value
	if t, ok := tracerPayload.Field("tags"); ok && t.Kind() == event.KindObject {
		payloadTags = t
	}

	env, hasEnv := optString(tracerPayload.Field("env"))
	hostName, hasHost := optString(tracerPayload.Field("hostName"))

	roots := make([]event.Value, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Kind() != event.KindObject {
			continue
		}
		root := transformChunk(chunk, payloadTags)

		root.SetField("source_type", event.String("datadog_agent"))
		root.SetField("payload_version", event.String("v2"))
		if hasEnv {
			root.SetField("env", event.String(env))
		}
		if hasHost {
			root.SetField("host", event.String(hostName))
		}

		for _, field := range []struct{ src, dst string }{
			{"containerID", "container_id"},
			{"languageName", "language_name"},
			{"languageVersion", "language_version"},
			{"tracerVersion", "tracer_version"},
			{"runtimeID", "runtime_id"},
			{"appVersion", "app_version"},
			{"agentVersion", "agent_version"},
		} {
			if s, ok := optString(tracerPayload.Field(field.src)); ok {
				root.SetField(field.dst, event.String(s))
			}
		}
		if v, ok := tracerPayload.Field("targetTPS"); ok {
			if f, ok := coerceFloat(v); ok && !math.IsNaN(f) {
				root.SetField("target_tps", event.Float(f))
			}
		}
		if v, ok := tracerPayload.Field("errorTPS"); ok {
			if f, ok := coerceFloat(v); ok && !math.IsNaN(f) {
				root.SetField("error_tps", event.Float(f))
			}
		}
		if v, ok := tracerPayload.Field("rareSamplerEnabled"); ok {
			if b, ok := v.AsBool(); ok {
				root.SetField("rare_sampler_enabled", event.Bool(b))
			}
		}

		roots = append(roots, root)
	}
	return roots, nil
}

// transformChunk builds one chunk's trace event: priority, origin, the
// dropped flag, the merged payload+chunk tag bag, and its normalized spans.
func transformChunk(chunk event.Value, payloadTags event.Value) event.Value {
	root := event.Object()

	if v, ok := chunk.Field("priority"); ok {
		if n, ok := coerceInt(v); ok {
			root.SetField("priority", event.Int(n))
		}
	}
	if s, ok := optString(chunk.Field("origin")); ok {
		root.SetField("origin", event.String(s))
	}
	if v, ok := chunk.Field("droppedTrace"); ok {
		if b, ok := v.AsBool(); ok {
			root.SetField("dropped", event.Bool(b))
		}
	}

	tags := event.Object()
	if payloadTags.Kind() == event.KindObject {
		for _, k := range payloadTags.Keys() {
			v, _ := payloadTags.Field(k)
			tags.SetField(k, v)
		}
	}
	if chunkTags, ok := chunk.Field("tags"); ok && chunkTags.Kind() == event.KindObject {
		for _, k := range chunkTags.Keys() {
			v, _ := chunkTags.Field(k)
			tags.SetField(k, v)
		}
	}
	root.SetField("tags", tags)

	var spans []event.Value
	if spansVal, ok := chunk.Field("spans"); ok && spansVal.Kind() == event.KindArray {
		items, _ := spansVal.AsArray()
		spans = filterSpanObjects(items)
	}
	root.SetField("spans", event.Array(spans...))

	return root
}
