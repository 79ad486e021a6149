package tailsample

import (
	"encoding/json"
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

// Transform holds no in-memory trace state of its own: every decision
// reads and writes the store directly, so a trace's buffered spans and
// rate counters survive a process restart without an explicit checkpoint
// step.
type Transform struct {
	cfg   Config
	store statestore.Store
}

// New constructs a Transform.
func New(cfg Config, store statestore.Store) *Transform {
	return &Transform{cfg: cfg.withDefaults(), store: store}
}

func (t *Transform) buildKey(name string, traceID string) string {
	if traceID == "" {
		return name
	}
	return traceID + ":" + name
}

func (t *Transform) fieldString(root event.Value, path event.Path) (string, bool) {
	v, ok := event.Get(root, path)
	if !ok {
		return "", false
	}
	s, ok := v.AsString()
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func (t *Transform) getResult(traceID string) (bool, bool) {
	raw, ok, err := t.store.Get(t.cfg.ComponentID, t.buildKey("result", traceID))
	if err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to get result")
		return false, false
	}
	if !ok {
		return false, false
	}
	decision, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return decision, true
}

func (t *Transform) setResult(traceID string, decision bool) {
	if err := t.store.Set(t.cfg.ComponentID, t.buildKey("result", traceID), strconv.FormatBool(decision), t.cfg.TTL); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("tailsample", "set").Inc()
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to set result")
		t.publish(events.KindPersistenceIO, "failed to persist trace decision: "+err.Error())
	}
}

// nextCount advances the conditional's rate counter modulo rate and
// returns the new value. A return of 1 means this call is the k*r+1-th
// match and the trace should be kept.
func (t *Transform) nextCount(outputName string, rate uint64) uint64 {
	key := t.buildKey(outputName, "")
	var current uint64
	if raw, ok, err := t.store.Get(t.cfg.ComponentID, key); err == nil && ok {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			current = parsed
		}
	}
	current = (current + 1) % rate
	if err := t.store.Set(t.cfg.ComponentID, key, strconv.FormatUint(current, 10), 0); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("tailsample", "set").Inc()
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to set conditional counter")
		t.publish(events.KindPersistenceIO, "failed to persist conditional counter: "+err.Error())
	}
	return current
}

func (t *Transform) getEvents(traceID string) []*event.LogEvent {
	raw, ok, err := t.store.Get(t.cfg.ComponentID, t.buildKey("events", traceID))
	if err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to get buffered events")
		return nil
	}
	if !ok {
		return nil
	}
	var roots []event.Value
	if err := json.Unmarshal([]byte(raw), &roots); err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to decode buffered events")
		return nil
	}
	events := make([]*event.LogEvent, len(roots))
	for i, root := range roots {
		events[i] = event.NewLogEvent(root)
	}
	return events
}

// appendEvent persists ev into the trace's buffered-children list. Once
// written, ev's own finalizers are released: the event's fate now tracks
// with the durable store entry rather than the in-process object, the
// same handoff a disk-backed buffer makes.
func (t *Transform) appendEvent(traceID string, ev *event.LogEvent) {
	buffered := t.getEvents(traceID)
	buffered = append(buffered, ev)
	roots := make([]event.Value, len(buffered))
	for i, e := range buffered {
		roots[i] = e.Root
	}
	data, err := json.Marshal(roots)
	if err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to encode buffered events")
		return
	}
	if err := t.store.Set(t.cfg.ComponentID, t.buildKey("events", traceID), string(data), t.cfg.TTL); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("tailsample", "set").Inc()
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to persist buffered events")
		t.publish(events.KindPersistenceIO, "failed to persist buffered events: "+err.Error())
	}
	ev.Metadata.Release()
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
		Component: "tailsample",
		Message:   msg,
		Fields:    map[string]string{"component_id": t.cfg.ComponentID},
	})
}

func (t *Transform) deleteEvents(traceID string) {
	if err := t.store.Delete(t.cfg.ComponentID, t.buildKey("events", traceID)); err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("tailsample: failed to delete buffered events")
	}
}

// reparseTimestamp restores the native timestamp type at the event's
// timestamp path. Serializing a buffered event through the store and back
// preserves Kind via Value's own JSON codec, so this is a no-op in
// practice, but it guards against a store that round-trips values as
// plain strings.
func (t *Transform) reparseTimestamp(ev *event.LogEvent) {
	ts, ok := ev.Timestamp()
	if !ok || ts.Kind() == event.KindTimestamp {
		return
	}
	raw, ok := ts.AsString()
	if !ok {
		return
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return
	}
	ev.SetTimestamp(event.Timestamp(parsed))
}

// Ingest evaluates one event and pushes zero or more events to out: the
// event itself may be buffered (non-root span of an undecided trace),
// dropped (cached negative decision, or malformed input), or it and its
// buffered siblings may be flushed together (root span of a freshly
// decided trace, or a late span of an already-kept trace).
func (t *Transform) Ingest(ev *event.LogEvent, out chan<- *event.LogEvent) {
	traceID, ok := t.fieldString(ev.Root, t.cfg.TraceIDField)
	if !ok {
		metrics.EventsDroppedTotal.WithLabelValues("tailsample", t.cfg.ComponentID, "missing_trace_id").Inc()
		t.publish(events.KindParseError, "event has no value at trace_id field, dropping")
		ev.Metadata.UpdateStatus(finalizer.Errored)
		ev.Metadata.Release()
		return
	}

	if decision, cached := t.getResult(traceID); cached {
		if decision {
			out <- ev
		} else {
			ev.Metadata.Release()
		}
		return
	}

	if parentSpanID, hasParent := t.fieldString(ev.Root, t.cfg.ParentSpanIDField); hasParent && parentSpanID != "" {
		t.appendEvent(traceID, ev)
		return
	}

	flush := false
	for _, c := range t.cfg.Conditionals {
		if !c.Condition(ev.Root) {
			continue
		}
		if c.Rate <= 1 {
			flush = true
		} else {
			flush = t.nextCount(c.OutputName, c.Rate) == 1
		}
		break
	}

	t.setResult(traceID, flush)

	decision := "drop"
	if flush {
		decision = "emit"
		out <- ev
		for _, child := range t.getEvents(traceID) {
			t.reparseTimestamp(child)
			out <- child
		}
	} else {
		ev.Metadata.Release()
	}
	metrics.TracesDecidedTotal.WithLabelValues(t.cfg.ComponentID, decision).Inc()

	t.deleteEvents(traceID)
}
