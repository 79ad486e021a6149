package ddparser

import (
	"testing"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEvent(message event.Value) *event.LogEvent {
	return event.NewLogEvent(event.ObjectFrom(map[string]event.Value{"message": message}))
}

func spanObj(fields map[string]event.Value) event.Value {
	return event.ObjectFrom(fields)
}

// TestParse_V1SplitsTransactionAndAPITrace covers spec.md §8's legacy v1
// shape: one transaction becomes a dropped single-span trace, and the
// surrounding APITrace fields become a second trace event.
func TestParse_V1SplitsTransactionAndAPITrace(t *testing.T) {
	message := spanObj(map[string]event.Value{
		"hostName":              event.String("tracer-host"),
		"env":                   event.String("production"),
		"mezmo_payload_version": event.String("v1"),
		"traceID":               event.String("8759615994146109196"),
		"startTime":             event.Int(1_000_000_000),
		"endTime":               event.Int(2_000_000_000),
		"spans": event.Array(spanObj(map[string]event.Value{
			"service":  event.String("web"),
			"name":     event.String("http.request"),
			"resource": event.String("/api/users"),
			"traceID":  event.String("8759615994146109196"),
			"spanID":   event.String("1309967388576301557"),
			"parentID": event.String("0"),
			"start":    event.Int(1_000_000_000),
			"duration": event.Int(500_000_000),
			"error":    event.Int(0),
			"meta":     spanObj(map[string]event.Value{"http.method": event.String("GET")}),
			"metrics":  spanObj(map[string]event.Value{"_sample_rate": event.Float(1.0)}),
		})),
		"transactions": event.Array(spanObj(map[string]event.Value{
			"service":  event.String("txn-service"),
			"name":     event.String("txn-name"),
			"traceID":  event.Int(99999),
			"spanID":   event.Int(100),
			"start":    event.Int(3_000_000_000),
			"duration": event.Int(200_000_000),
			"error":    event.Int(1),
		})),
	})

	p := New(Config{ComponentID: "test"})
	results, err := p.Parse(buildEvent(message))
	require.NoError(t, err)
	require.Len(t, results, 2, "one transaction trace and one api trace")

	txnMsg, _ := results[0].Message()
	assert.Equal(t, true, mustBool(txnMsg.Field("dropped")))
	assert.Equal(t, "v1", mustString(txnMsg.Field("payload_version")))
	assert.Equal(t, "tracer-host", mustString(txnMsg.Field("host")))
	assert.Equal(t, "production", mustString(txnMsg.Field("env")))

	txnSpans, _ := txnMsg.Field("spans")
	spans, _ := txnSpans.AsArray()
	require.Len(t, spans, 1)
	assert.Equal(t, "txn-service", mustString(spans[0].Field("service")))
	assert.Equal(t, int64(99999), mustInt(spans[0].Field("trace_id")))
	assert.Equal(t, int64(100), mustInt(spans[0].Field("span_id")))
	assert.Equal(t, int64(1), mustInt(spans[0].Field("error")))

	traceMsg, _ := results[1].Message()
	assert.Equal(t, "v1", mustString(traceMsg.Field("payload_version")))
	assert.Equal(t, int64(8759615994146109196), mustInt(traceMsg.Field("trace_id")))

	traceSpans, _ := traceMsg.Field("spans")
	spans2, _ := traceSpans.AsArray()
	require.Len(t, spans2, 1)
	assert.Equal(t, "web", mustString(spans2[0].Field("service")))
	assert.Equal(t, int64(8759615994146109196), mustInt(spans2[0].Field("trace_id")))
	assert.Equal(t, int64(1309967388576301557), mustInt(spans2[0].Field("span_id")))
	assert.Equal(t, int64(0), mustInt(spans2[0].Field("parent_id")))
	assert.Equal(t, int64(0), mustInt(spans2[0].Field("error")))
}

// TestParse_V2ChunkWithTagsAndMetaStruct covers spec.md §8 scenario 6: a v2
// TracerPayload with one chunk, payload/chunk tag merge, and a span using
// metaStruct.
func TestParse_V2ChunkWithTagsAndMetaStruct(t *testing.T) {
	message := spanObj(map[string]event.Value{
		"hostName":              event.String("myhost"),
		"env":                   event.String("staging"),
		"mezmo_payload_version": event.String("v2"),
		"agentVersion":          event.String("7.0.0"),
		"targetTPS":             event.Float(10.0),
		"errorTPS":              event.Float(1.0),
		"rareSamplerEnabled":    event.Bool(true),
		"containerID":           event.String("abc123"),
		"tags":                  spanObj(map[string]event.Value{"payload_tag": event.String("value")}),
		"chunks": event.Array(spanObj(map[string]event.Value{
			"priority":     event.Int(1),
			"origin":       event.String("lambda"),
			"droppedTrace": event.Bool(true),
			"tags":         spanObj(map[string]event.Value{"chunk_tag": event.String("value")}),
			"spans": event.Array(spanObj(map[string]event.Value{
				"service":    event.String("api"),
				"name":       event.String("handler"),
				"resource":   event.String("process"),
				"traceID":    event.Int(875961599414),
				"spanID":     event.Int(1309967388),
				"parentID":   event.String("0"),
				"start":      event.Int(2_000_000_000),
				"duration":   event.Int(100_000_000),
				"error":      event.Int(0),
				"metrics":    spanObj(map[string]event.Value{"_sample_rate": event.Int(1)}),
				"metaStruct": spanObj(map[string]event.Value{"blob": event.String("data")}),
			})),
		})),
	})

	p := New(Config{ComponentID: "test"})
	results, err := p.Parse(buildEvent(message))
	require.NoError(t, err)
	require.Len(t, results, 1)

	trace, _ := results[0].Message()
	assert.Equal(t, "v2", mustString(trace.Field("payload_version")))
	assert.Equal(t, "7.0.0", mustString(trace.Field("agent_version")))
	assert.Equal(t, 10.0, mustFloat(trace.Field("target_tps")))
	assert.Equal(t, 1.0, mustFloat(trace.Field("error_tps")))
	assert.Equal(t, true, mustBool(trace.Field("rare_sampler_enabled")))
	assert.Equal(t, "abc123", mustString(trace.Field("container_id")))
	assert.Equal(t, int64(1), mustInt(trace.Field("priority")))
	assert.Equal(t, "lambda", mustString(trace.Field("origin")))
	assert.Equal(t, true, mustBool(trace.Field("dropped")))

	tags, _ := trace.Field("tags")
	assert.Equal(t, "value", mustString(tags.Field("payload_tag")))
	assert.Equal(t, "value", mustString(tags.Field("chunk_tag")))

	spansVal, _ := trace.Field("spans")
	spans, _ := spansVal.AsArray()
	require.Len(t, spans, 1)
	assert.Equal(t, int64(875961599414), mustInt(spans[0].Field("trace_id")))
	assert.Equal(t, int64(0), mustInt(spans[0].Field("parent_id")))

	metaStruct, _ := spans[0].Field("meta_struct")
	assert.Equal(t, "data", mustString(metaStruct.Field("blob")))

	metricsVal, _ := spans[0].Field("metrics")
	assert.Equal(t, 1.0, mustFloat(metricsVal.Field("_sample_rate")))
}

func TestTransformSpan_DropsMissingRequiredFields(t *testing.T) {
	_, ok := transformSpan(spanObj(map[string]event.Value{"spanID": event.Int(456)}))
	assert.False(t, ok)

	_, ok = transformSpan(spanObj(map[string]event.Value{"traceID": event.Int(123)}))
	assert.False(t, ok)
}

func TestTransformSpan_CoercesStringAndFloatIDs(t *testing.T) {
	span, ok := transformSpan(spanObj(map[string]event.Value{
		"traceID":  event.String("1.23e5"),
		"spanID":   event.Float(4.56e6),
		"parentID": event.String("7.89e2"),
	}))
	require.True(t, ok)
	assert.Equal(t, int64(123000), mustInt(span.Field("trace_id")))
	assert.Equal(t, int64(4560000), mustInt(span.Field("span_id")))
	assert.Equal(t, int64(789), mustInt(span.Field("parent_id")))
}

func TestTransformSpan_OmitsEmptySubObjects(t *testing.T) {
	span, ok := transformSpan(spanObj(map[string]event.Value{
		"traceID": event.Int(123),
		"spanID":  event.Int(456),
		"metrics": event.Object(),
	}))
	require.True(t, ok)
	_, hasMetrics := span.Field("metrics")
	assert.False(t, hasMetrics)
	_, hasMetaStruct := span.Field("meta_struct")
	assert.False(t, hasMetaStruct)
}

func mustString(v event.Value, ok bool) string {
	s, _ := v.AsString()
	return s
}

func mustInt(v event.Value, ok bool) int64 {
	i, _ := v.AsInt()
	return i
}

func mustFloat(v event.Value, ok bool) float64 {
	f, _ := v.AsFloat()
	return f
}

func mustBool(v event.Value, ok bool) bool {
	b, _ := v.AsBool()
	return b
}
