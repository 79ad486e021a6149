package aggregate

import (
	"testing"
	"time"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/finalizer"
	"github.com/cuemby/fluxion/pkg/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// mergeSum folds the integer "value" field of ev into accum's "sum" field,
// treating a Null accum as a freshly opened window.
func mergeSum(accum, ev event.Value) event.Value {
	var sum int64
	if v, ok := accum.Field("sum"); ok {
		if i, ok := v.AsInt(); ok {
			sum = i
		}
	}
	if v, ok := ev.Field("value"); ok {
		if i, ok := v.AsInt(); ok {
			sum += i
		}
	}
	out := event.Object()
	out.SetField("sum", event.Int(sum))
	return out
}

func newValueEvent(ts time.Time, val int64) *event.LogEvent {
	root := event.Object()
	root.SetField("ts", event.Timestamp(ts))
	root.SetField("value", event.Int(val))
	return event.NewLogEvent(root)
}

func sumOf(t *testing.T, v event.Value) int64 {
	t.Helper()
	f, ok := v.Field("sum")
	require.True(t, ok)
	i, ok := f.AsInt()
	require.True(t, ok)
	return i
}

func TestTransform_SlidingMerge(t *testing.T) {
	cfg := Config{
		ComponentID:         "test",
		WindowDuration:      5 * time.Millisecond,
		MinWindowSize:       0,
		EventTimestampField: event.ParsePath("ts"),
		Source:              mergeSum,
	}
	tr := New(cfg, nil)

	tr.ingest(newValueEvent(testBase.Add(1*time.Millisecond), 3))
	tr.ingest(newValueEvent(testBase.Add(3*time.Millisecond), 4))

	require.Len(t, tr.keys, 1)
	var entry *keyEntry
	for _, e := range tr.keys {
		entry = e
	}
	require.Len(t, entry.windows, 2)

	assert.True(t, entry.windows[0].start.Equal(testBase.Add(1*time.Millisecond)))
	assert.EqualValues(t, 7, sumOf(t, entry.windows[0].value))

	assert.True(t, entry.windows[1].start.Equal(testBase.Add(3*time.Millisecond)))
	assert.EqualValues(t, 4, sumOf(t, entry.windows[1].value))
}

func TestTransform_CardinalityCapDropsAndErrorsFinalizer(t *testing.T) {
	cfg := Config{
		ComponentID:         "test",
		WindowDuration:      5 * time.Millisecond,
		EventTimestampField: event.ParsePath("ts"),
		EventIDFields:       []event.Path{event.ParsePath("id")},
		MemCardinalityLimit: 1,
		Source:              mergeSum,
	}
	tr := New(cfg, nil)

	first := newValueEvent(testBase, 1)
	first.Root.SetField("id", event.String("a"))
	tr.ingest(first)

	second := newValueEvent(testBase, 2)
	second.Root.SetField("id", event.String("b"))

	notifier, done := finalizer.New()
	f := finalizer.NewEventFinalizer(notifier)
	second.Metadata.AddFinalizer(f)

	tr.ingest(second)

	require.Len(t, tr.keys, 1, "second group key must have been rejected at capacity")

	select {
	case status := <-done:
		assert.Equal(t, finalizer.Errored, status)
	default:
		t.Fatal("expected the dropped event's finalizer to have been released")
	}
}

func TestTransform_WindowLimitEvictsOldest(t *testing.T) {
	cfg := Config{
		ComponentID:         "test",
		WindowDuration:      1 * time.Millisecond,
		MinWindowSize:       0,
		EventTimestampField: event.ParsePath("ts"),
		MemWindowLimit:      1,
		Source:              mergeSum,
	}
	tr := New(cfg, nil)

	notifier, done := finalizer.New()

	first := newValueEvent(testBase, 1)
	f1 := finalizer.NewEventFinalizer(notifier)
	first.Metadata.AddFinalizer(f1)
	tr.ingest(first)

	second := newValueEvent(testBase.Add(10*time.Millisecond), 2)
	tr.ingest(second)

	var entry *keyEntry
	for _, e := range tr.keys {
		entry = e
	}
	require.Len(t, entry.windows, 1, "oldest window must have been evicted")
	assert.True(t, entry.windows[0].start.Equal(testBase.Add(10*time.Millisecond)))

	select {
	case status := <-done:
		assert.Equal(t, finalizer.Errored, status, "evicted window's finalizer must report errored")
	default:
		t.Fatal("expected the evicted window's finalizer to have been released")
	}
}

func TestTransform_FlushConditionEmitsBeforeExpiry(t *testing.T) {
	cfg := Config{
		ComponentID:         "test",
		WindowDuration:      time.Hour,
		MinWindowSize:       0,
		EventTimestampField: event.ParsePath("ts"),
		Source:              mergeSum,
		FlushCondition: func(accum event.Value) bool {
			f, ok := accum.Field("sum")
			if !ok {
				return false
			}
			i, _ := f.AsInt()
			return i >= 5
		},
	}
	tr := New(cfg, nil)

	tr.ingest(newValueEvent(time.Now().UTC(), 5))

	out := make(chan *event.LogEvent, 10)
	tr.flushExpired(out)
	close(out)

	var emitted []*event.LogEvent
	for ev := range out {
		emitted = append(emitted, ev)
	}
	require.Len(t, emitted, 1)
	assert.EqualValues(t, 5, sumOf(t, emitted[0].Root))
	assert.Empty(t, tr.keys, "flushed key must be removed once its window deque is empty")
}

func TestTransform_PersistRehydrateRoundTrip(t *testing.T) {
	store := statestore.NewMemory()

	cfg := Config{
		ComponentID:         "agg-roundtrip",
		WindowDuration:      5 * time.Millisecond,
		MinWindowSize:       0,
		EventTimestampField: event.ParsePath("ts"),
		Source:              mergeSum,
	}
	tr := New(cfg, store)
	tr.ingest(newValueEvent(testBase.Add(1*time.Millisecond), 3))
	tr.persist()

	restored := New(cfg, store)
	require.NoError(t, restored.Rehydrate())

	require.Len(t, restored.keys, 1)
	var entry *keyEntry
	for _, e := range restored.keys {
		entry = e
	}
	require.Len(t, entry.windows, 1)
	assert.True(t, entry.windows[0].start.Equal(testBase.Add(1*time.Millisecond)))
	assert.EqualValues(t, 3, sumOf(t, entry.windows[0].value))
}

func TestTransform_RunDrainsOnContextCancellation(t *testing.T) {
	cfg := Config{
		ComponentID:         "run-test",
		WindowDuration:      time.Hour,
		MinWindowSize:       0,
		EventTimestampField: event.ParsePath("ts"),
		Source:              mergeSum,
	}
	tr := New(cfg, nil)

	in := make(chan *event.LogEvent)
	out := make(chan *event.LogEvent, 1)
	done := make(chan struct{})

	go func() {
		in <- newValueEvent(testBase, 9)
		close(done)
	}()

	finished := make(chan struct{})
	go func() {
		tr.Run(doneCtx{done}, in, out)
		close(finished)
	}()

	<-done
	<-finished

	select {
	case ev := <-out:
		assert.EqualValues(t, 9, sumOf(t, ev.Root))
	default:
		t.Fatal("expected the in-flight window to be drained on cancellation")
	}
}

type doneCtx struct {
	ch chan struct{}
}

func (d doneCtx) Done() <-chan struct{} { return d.ch }
