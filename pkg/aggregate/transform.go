package aggregate

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/finalizer"
	"github.com/cuemby/fluxion/pkg/log"
	"github.com/cuemby/fluxion/pkg/metrics"
	"github.com/cuemby/fluxion/pkg/statestore"
)

const stateKey = "state"

// Transform is one instance of the sliding-window aggregating transform.
// It owns all window state; callers must only interact with it through
// Run, never from another goroutine.
type Transform struct {
	cfg   Config
	store statestore.Store

	keys map[event.GroupKey]*keyEntry
	rng  *rand.Rand
}

// New constructs a Transform. store may be nil, in which case checkpoints
// are skipped entirely (useful for tests and for pipelines that accept
// losing in-flight window state on restart).
func New(cfg Config, store statestore.Store) *Transform {
	return &Transform{
		cfg:   cfg.withDefaults(),
		store: store,
		keys:  make(map[event.GroupKey]*keyEntry),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Rehydrate loads any previously checkpointed state. Call before Run.
func (t *Transform) Rehydrate() error {
	if t.store == nil {
		return nil
	}
	raw, ok, err := t.store.Get(t.cfg.ComponentID, stateKey)
	if err != nil {
		return fmt.Errorf("aggregate: rehydrate: %w", err)
	}
	if !ok {
		return nil
	}
	var persisted map[string][]checkpointWindow
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		return fmt.Errorf("aggregate: decode checkpoint: %w", err)
	}
	for keyStr, windows := range persisted {
		keyHash, err := strconv.ParseUint(keyStr, 10, 64)
		if err != nil {
			continue
		}
		entry := &keyEntry{}
		for _, cw := range windows {
			entry.windows = append(entry.windows, &window{start: cw.Start, value: cw.Value, meta: event.NewMetadata()})
		}
		t.keys[event.GroupKey(keyHash)] = entry
	}
	return nil
}

// Run drives the transform until in is closed or ctx is cancelled. Emitted
// events are sent on out; Run closes out before returning.
func (t *Transform) Run(ctx runContext, in <-chan *event.LogEvent, out chan<- *event.LogEvent) {
	defer close(out)

	flushTicker := time.NewTicker(t.cfg.FlushTickInterval)
	defer flushTicker.Stop()

	persistTimer := time.NewTimer(t.nextPersistenceDelay())
	defer persistTimer.Stop()

	for {
		select {
		case ev, ok := <-in:
			if !ok {
				t.drainAll(out)
				t.persist()
				return
			}
			t.ingest(ev)

		case <-flushTicker.C:
			t.flushExpired(out)

		case <-persistTimer.C:
			t.persist()
			persistTimer.Reset(t.nextPersistenceDelay())

		case <-ctx.Done():
			t.drainAll(out)
			t.persist()
			return
		}
	}
}

// runContext is the minimal context.Context surface Run needs; defined
// narrowly so tests can pass either a real context.Context or a bare
// done-channel stub without importing "context" into every caller.
type runContext interface {
	Done() <-chan struct{}
}

func (t *Transform) nextPersistenceDelay() time.Duration {
	if t.cfg.PersistenceMaxJitter <= 0 {
		return t.cfg.PersistenceTickInterval
	}
	jitter := time.Duration(t.rng.Int63n(int64(t.cfg.PersistenceMaxJitter)))
	return t.cfg.PersistenceTickInterval + jitter
}

func (t *Transform) extractTimestamp(ev *event.LogEvent) time.Time {
	if len(t.cfg.EventTimestampField) == 0 {
		return time.Now().UTC()
	}
	v, ok := event.Get(ev.Root, t.cfg.EventTimestampField)
	if !ok {
		return time.Now().UTC()
	}
	ts, ok := v.AsTimestamp()
	if !ok {
		return time.Now().UTC()
	}
	return ts
}

func (t *Transform) ingest(ev *event.LogEvent) {
	key := event.HashPaths(ev.Root, t.cfg.EventIDFields)
	ts := t.extractTimestamp(ev)

	entry, exists := t.keys[key]
	if !exists {
		if t.cfg.MemCardinalityLimit > 0 && len(t.keys) >= t.cfg.MemCardinalityLimit {
			metrics.EventsDroppedTotal.WithLabelValues("aggregate", t.cfg.ComponentID, "capacity_exceeded").Inc()
			t.publish(events.KindCapacityExceeded, "mem_cardinality_limit reached, dropping new key")
			ev.Metadata.UpdateStatus(finalizer.Errored)
			ev.Metadata.Release()
			return
		}
		entry = &keyEntry{}
		t.keys[key] = entry
	}

	merged := false
	for i := len(entry.windows) - 1; i >= 0; i-- {
		w := entry.windows[i]
		end := w.start.Add(t.cfg.WindowDuration)
		if !ts.Before(end) {
			break
		}
		if !ts.Before(w.start) {
			w.value = t.cfg.Source(w.value, ev.Root)
			w.meta.MergeFinalizers(&ev.Metadata)
			merged = true
		}
	}

	newest := entry.newest()
	if newest == nil || ts.After(newest.start.Add(t.cfg.MinWindowSize)) {
		nw := &window{start: ts, value: t.cfg.Source(event.Null(), ev.Root), meta: event.NewMetadata()}
		nw.meta.MergeFinalizers(&ev.Metadata)
		entry.windows = append(entry.windows, nw)
		t.evictOverflow(entry)
	} else if !merged {
		// ts fell between the newest window's start and its
		// min_window_size boundary without landing inside any live
		// window's range (possible once eviction has opened a gap in
		// the deque). The event contributes to nothing and must not
		// hang its source's batch, so it is errored and released on
		// its own rather than folded into an unrelated window.
		metrics.EventsDroppedTotal.WithLabelValues("aggregate", t.cfg.ComponentID, "window_gap").Inc()
		t.publish(events.KindCapacityExceeded, "event timestamp fell in a gap left by window eviction")
		ev.Metadata.UpdateStatus(finalizer.Errored)
		ev.Metadata.Release()
	}

	metrics.StateCardinality.WithLabelValues(t.cfg.ComponentID).Set(float64(len(t.keys)))
}

func (t *Transform) evictOverflow(entry *keyEntry) {
	if t.cfg.MemWindowLimit <= 0 || len(entry.windows) <= t.cfg.MemWindowLimit {
		return
	}
	overflow := len(entry.windows) - t.cfg.MemWindowLimit
	for i := 0; i < overflow; i++ {
		entry.windows[i].meta.UpdateStatus(finalizer.Errored)
		entry.windows[i].meta.Release()
	}
	entry.windows = entry.windows[overflow:]
}

// flushExpired drains, per key, the leading run of windows that are
// either past expiry or flush_condition-true, extended (oldest-first) to
// respect mem_window_limit if eviction pushed the deque over the limit.
func (t *Transform) flushExpired(out chan<- *event.LogEvent) {
	now := time.Now().UTC()
	for key, entry := range t.keys {
		prefix := 0
		for prefix < len(entry.windows) {
			w := entry.windows[prefix]
			expired := !now.Before(w.start.Add(t.cfg.WindowDuration))
			if !expired && !t.cfg.FlushCondition(w.value) {
				break
			}
			prefix++
		}
		if t.cfg.MemWindowLimit > 0 && len(entry.windows)-prefix > t.cfg.MemWindowLimit {
			prefix = len(entry.windows) - t.cfg.MemWindowLimit
		}
		t.drainPrefix(entry, prefix, out)
		if len(entry.windows) == 0 {
			delete(t.keys, key)
		}
	}
	metrics.StateCardinality.WithLabelValues(t.cfg.ComponentID).Set(float64(len(t.keys)))
}

func (t *Transform) drainPrefix(entry *keyEntry, n int, out chan<- *event.LogEvent) {
	timer := metrics.NewTimer()
	for i := 0; i < n; i++ {
		w := entry.windows[i]
		ev := event.NewLogEvent(w.value)
		ev.Metadata = w.meta
		out <- ev
	}
	entry.windows = entry.windows[n:]
	timer.ObserveDurationVec(metrics.FlushDuration, t.cfg.ComponentID)
}

func (t *Transform) drainAll(out chan<- *event.LogEvent) {
	keys := make([]event.GroupKey, 0, len(t.keys))
	for k := range t.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		entry := t.keys[key]
		t.drainPrefix(entry, len(entry.windows), out)
		delete(t.keys, key)
	}
}

func (t *Transform) persist() {
	if t.store == nil {
		return
	}
	persisted := make(map[string][]checkpointWindow, len(t.keys))
	for key, entry := range t.keys {
		windows := make([]checkpointWindow, len(entry.windows))
		for i, w := range entry.windows {
			windows[i] = checkpointWindow{Start: w.start, Value: w.value}
		}
		persisted[strconv.FormatUint(uint64(key), 10)] = windows
	}
	data, err := json.Marshal(persisted)
	if err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("failed to encode aggregate checkpoint")
		return
	}
	if err := t.store.Set(t.cfg.ComponentID, stateKey, string(data), 0); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("aggregate", "set").Inc()
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("failed to persist aggregate checkpoint")
		t.publish(events.KindPersistenceIO, "failed to persist aggregate checkpoint: "+err.Error())
	}
}

// publish forwards a diagnostic event to t.cfg.Broker, if one is
// configured. No-op otherwise so Config.Broker stays optional.
func (t *Transform) publish(kind events.Kind, msg string) {
	if t.cfg.Broker == nil {
		return
	}
	t.cfg.Broker.Publish(&events.Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Severity:  events.SeverityWarn,
		Component: "aggregate",
		Message:   msg,
		Fields:    map[string]string{"component_id": t.cfg.ComponentID},
	})
}
