package reduce

import (
	"testing"
	"time"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageEvent(fields map[string]event.Value) *event.LogEvent {
	msg := event.ObjectFrom(fields)
	root := event.ObjectFrom(map[string]event.Value{"message": msg})
	return event.NewLogEvent(root)
}

func fieldString(t *testing.T, v event.Value, name string) string {
	t.Helper()
	f, ok := v.Field(name)
	require.True(t, ok, "missing field %q", name)
	s, ok := f.AsString()
	require.True(t, ok, "field %q is not string-like", name)
	return s
}

// TestTransform_GroupByConcatEndsWhen covers spec.md §8 scenario 2: group_by
// on message.request_id, concat merge on message.foo, session flushes when
// message.test_end == "yes", included.
func TestTransform_GroupByConcatEndsWhen(t *testing.T) {
	endsWhen := func(root event.Value) bool {
		v, ok := event.Get(root, event.ParsePath("message.test_end"))
		if !ok {
			return false
		}
		s, _ := v.AsString()
		return s == "yes"
	}

	cfg := Config{
		ComponentID: "test",
		GroupBy:     []event.Path{event.ParsePath("message.request_id")},
		MergeStrategies: map[string]Strategy{
			"foo": StrategyConcat,
		},
		EndsWhen: endsWhen,
	}
	tr := New(cfg, nil)

	out := make(chan *event.LogEvent, 4)

	tr.ingest(messageEvent(map[string]event.Value{
		"request_id": event.String("1"),
		"foo":        event.String("a"),
	}), out)
	tr.ingest(messageEvent(map[string]event.Value{
		"request_id": event.String("1"),
		"foo":        event.String("b"),
	}), out)
	tr.ingest(messageEvent(map[string]event.Value{
		"request_id": event.String("1"),
		"test_end":   event.String("yes"),
	}), out)

	close(out)
	var emitted []*event.LogEvent
	for ev := range out {
		emitted = append(emitted, ev)
	}
	require.Len(t, emitted, 1)

	root := emitted[0].Root
	assert.Equal(t, "1", fieldString(t, root, "request_id"))
	assert.Equal(t, "a b", fieldString(t, root, "foo"))
	assert.Equal(t, "yes", fieldString(t, root, "test_end"))
	assert.Empty(t, tr.sessions, "ended session must be removed")
}

// TestTransform_PerStateThresholdFlushesOnNextTick covers spec.md §8
// scenario 3: exceeding ByteThresholdPerState does not flush immediately on
// ingest, only on the next sweep tick, after which a fresh session opens
// for subsequent events under the same discriminant.
func TestTransform_PerStateThresholdFlushesOnNextTick(t *testing.T) {
	cfg := Config{
		ComponentID:           "test",
		ByteThresholdPerState: 30,
		MergeStrategies: map[string]Strategy{
			"val": StrategyArray,
		},
	}
	tr := New(cfg, nil)

	out := make(chan *event.LogEvent, 4)

	strs := []string{"0123456789abcdef", "0123456789abcde", "0123456789abcdef"}
	for _, s := range strs {
		tr.ingest(messageEvent(map[string]event.Value{"val": event.String(s)}), out)
	}

	require.Len(t, tr.sessions, 1, "no flush should happen purely from ingest")
	select {
	case <-out:
		t.Fatal("expected no emission before the next sweep tick")
	default:
	}

	tr.sweep(out)
	close(out)

	var emitted []*event.LogEvent
	for ev := range out {
		emitted = append(emitted, ev)
	}
	require.Len(t, emitted, 1)
	arr, ok := emitted[0].Root.Field("val")
	require.True(t, ok)
	vals, ok := arr.AsArray()
	require.True(t, ok)
	assert.Len(t, vals, 3)
	assert.Empty(t, tr.sessions, "threshold-exceeding session must be flushed and removed")

	tr.ingest(messageEvent(map[string]event.Value{"val": event.String("next")}), out)
	require.Len(t, tr.sessions, 1, "subsequent event under the same discriminant starts a fresh session")
}

func TestTransform_ExpireAfterIdleFlush(t *testing.T) {
	cfg := Config{
		ComponentID: "test",
		ExpireAfter: 1 * time.Millisecond,
	}
	tr := New(cfg, nil)
	out := make(chan *event.LogEvent, 1)

	tr.ingest(messageEvent(map[string]event.Value{"val": event.Int(1)}), out)
	time.Sleep(5 * time.Millisecond)
	tr.sweep(out)
	close(out)

	var emitted []*event.LogEvent
	for ev := range out {
		emitted = append(emitted, ev)
	}
	require.Len(t, emitted, 1)
}

func TestTransform_PersistRehydrateRoundTrip(t *testing.T) {
	store := statestore.NewMemory()
	cfg := Config{
		ComponentID: "reduce-roundtrip",
		GroupBy:     []event.Path{event.ParsePath("message.request_id")},
		MergeStrategies: map[string]Strategy{
			"foo": StrategyConcat,
		},
	}
	out := make(chan *event.LogEvent, 1)

	tr := New(cfg, store)
	tr.ingest(messageEvent(map[string]event.Value{
		"request_id": event.String("1"),
		"foo":        event.String("a"),
	}), out)
	tr.persist()

	restored := New(cfg, store)
	require.NoError(t, restored.Rehydrate())
	require.Len(t, restored.sessions, 1)

	restored.ingest(messageEvent(map[string]event.Value{
		"request_id": event.String("1"),
		"foo":        event.String("b"),
	}), out)
	restored.flushAll(out)
	close(out)

	var emitted []*event.LogEvent
	for ev := range out {
		emitted = append(emitted, ev)
	}
	require.Len(t, emitted, 1)
	assert.Equal(t, "a b", fieldString(t, emitted[0].Root, "foo"))
}

func TestTransform_StartsWhenOpensNewSessionExcludingTrigger(t *testing.T) {
	startsWhen := func(root event.Value) bool {
		v, ok := event.Get(root, event.ParsePath("message.start"))
		if !ok {
			return false
		}
		s, _ := v.AsString()
		return s == "yes"
	}

	cfg := Config{
		ComponentID: "test",
		StartsWhen:  startsWhen,
		MergeStrategies: map[string]Strategy{
			"val": StrategyArray,
		},
	}
	tr := New(cfg, nil)
	out := make(chan *event.LogEvent, 4)

	tr.ingest(messageEvent(map[string]event.Value{"val": event.String("a")}), out)
	tr.ingest(messageEvent(map[string]event.Value{"start": event.String("yes"), "val": event.String("b")}), out)
	tr.flushAll(out)
	close(out)

	var emitted []*event.LogEvent
	for ev := range out {
		emitted = append(emitted, ev)
	}
	require.Len(t, emitted, 2, "the starts_when trigger must flush the prior session and begin a new one")

	firstArr, _ := emitted[0].Root.Field("val")
	firstVals, _ := firstArr.AsArray()
	assert.Len(t, firstVals, 1)

	secondArr, _ := emitted[1].Root.Field("val")
	secondVals, _ := secondArr.AsArray()
	assert.Len(t, secondVals, 1, "the triggering event itself starts (and belongs to) the new session")
}
