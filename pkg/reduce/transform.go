package reduce

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/log"
	"github.com/cuemby/fluxion/pkg/metrics"
	"github.com/cuemby/fluxion/pkg/statestore"
)

// Transform is one instance of the reducing (session-window) transform.
// State must only be touched from the goroutine running Run.
type Transform struct {
	cfg   Config
	store statestore.Store

	forced map[string]bool // group_by field names, forced to discard

	sessions map[event.GroupKey]*session
}

// New constructs a Transform.
func New(cfg Config, store statestore.Store) *Transform {
	cfg = cfg.withDefaults()
	forced := make(map[string]bool, len(cfg.GroupBy))
	for _, p := range cfg.GroupBy {
		if len(p) > 0 {
			forced[p[len(p)-1]] = true
		}
	}
	return &Transform{
		cfg:      cfg,
		store:    store,
		forced:   forced,
		sessions: make(map[event.GroupKey]*session),
	}
}

// runContext mirrors pkg/aggregate's minimal context surface.
type runContext interface {
	Done() <-chan struct{}
}

// Run drives the transform until in is closed or ctx is cancelled, writing
// every emitted session to out and closing out before returning.
func (t *Transform) Run(ctx runContext, in <-chan *event.LogEvent, out chan<- *event.LogEvent) {
	defer close(out)

	flushTicker := time.NewTicker(t.cfg.FlushTickInterval)
	defer flushTicker.Stop()

	persistTicker := time.NewTicker(t.cfg.PersistenceTickInterval)
	defer persistTicker.Stop()

	for {
		select {
		case ev, ok := <-in:
			if !ok {
				t.flushAll(out)
				t.persist()
				return
			}
			t.ingest(ev, out)

		case <-flushTicker.C:
			t.sweep(out)

		case <-persistTicker.C:
			t.persist()

		case <-ctx.Done():
			t.flushAll(out)
			t.persist()
			return
		}
	}
}

// discriminant and groupByValues resolve cfg.GroupBy paths directly against
// the event root; a path may freely include a "message." prefix since Path
// is just a dotted chain of object keys, so no separate "message view" is
// needed to support group_by targeting a nested field.
func (t *Transform) discriminant(root event.Value) event.GroupKey {
	return event.HashPaths(root, t.cfg.GroupBy)
}

func (t *Transform) groupByValues(root event.Value) map[string]event.Value {
	out := make(map[string]event.Value, len(t.cfg.GroupBy))
	for _, p := range t.cfg.GroupBy {
		if len(p) == 0 {
			continue
		}
		name := p[len(p)-1]
		if v, ok := event.Get(root, p); ok {
			out[name] = v
		}
	}
	return out
}

func (t *Transform) ingest(ev *event.LogEvent, out chan<- *event.LogEvent) {
	key := t.discriminant(ev.Root)

	if t.cfg.StartsWhen != nil && t.cfg.StartsWhen(ev.Root) {
		if s, ok := t.sessions[key]; ok {
			t.emit(key, s, out)
		}
	}

	s, ok := t.sessions[key]
	if !ok {
		s = newSession(time.Now().UTC())
		for k, v := range t.groupByValues(ev.Root) {
			s.groupBy[k] = v
		}
		t.sessions[key] = s
	}

	t.absorb(s, ev)
	s.updatedAt = time.Now().UTC()
	s.meta.MergeFinalizers(&ev.Metadata)

	metrics.StateCardinality.WithLabelValues(t.cfg.ComponentID).Set(float64(len(t.sessions)))

	if t.cfg.EndsWhen != nil && t.cfg.EndsWhen(ev.Root) {
		t.emit(key, s, out)
	}
}

// absorb folds one event's fields into the session's flat field map.
// Root-level fields (other than "message" itself, when it is an object)
// use default-by-kind strategies; fields nested under "message" are looked
// up by bare name in the configured MergeStrategies. Either way, group_by
// fields are forced to discard.
func (t *Transform) absorb(s *session, ev *event.LogEvent) {
	hasMessage := false
	for _, k := range ev.Root.Keys() {
		if k == "message" {
			if msg, ok := ev.Root.Field("message"); ok && msg.Kind() == event.KindObject {
				hasMessage = true
				continue
			}
		}
		v, _ := ev.Root.Field(k)
		v = t.coerceIngress(s, k, v)
		mergeInto(s.fields, nil, t.forced, k, v)
	}

	if !hasMessage {
		return
	}
	view, _ := ev.Root.Field("message")
	for _, k := range view.Keys() {
		v, _ := view.Field(k)
		v = t.coerceIngress(s, k, v)
		mergeInto(s.fields, t.cfg.MergeStrategies, t.forced, k, v)
	}
}

func (t *Transform) coerceIngress(s *session, field string, v event.Value) event.Value {
	for _, df := range t.cfg.DateFormats {
		if len(df.Path) == 0 || df.Path[len(df.Path)-1] != field {
			continue
		}
		if v.Kind() == event.KindTimestamp {
			return v
		}
		raw, ok := v.AsString()
		if !ok {
			return v
		}
		parsed, err := time.Parse(df.Layout, raw)
		if err != nil {
			return v
		}
		s.dateKinds[field] = v.Kind()
		return event.Timestamp(parsed)
	}
	return v
}

func (t *Transform) coerceEgress(out *event.Value, s *session) {
	for _, df := range t.cfg.DateFormats {
		if len(df.Path) == 0 {
			continue
		}
		field := df.Path[len(df.Path)-1]
		if _, ok := s.dateKinds[field]; !ok {
			continue
		}
		for _, key := range []string{field, field + "_end"} {
			v, ok := out.Field(key)
			if !ok || v.Kind() != event.KindTimestamp {
				continue
			}
			ts, _ := v.AsTimestamp()
			out.SetField(key, event.String(ts.Format(df.Layout)))
		}
	}
}

func (t *Transform) emit(key event.GroupKey, s *session, out chan<- *event.LogEvent) {
	timer := metrics.NewTimer()
	final := s.finalize()
	t.coerceEgress(&final, s)

	ev := event.NewLogEvent(final)
	ev.Metadata = s.meta
	out <- ev

	delete(t.sessions, key)
	timer.ObserveDurationVec(metrics.FlushDuration, t.cfg.ComponentID)
	metrics.StateCardinality.WithLabelValues(t.cfg.ComponentID).Set(float64(len(t.sessions)))
}

// sweep flushes sessions that have gone idle past ExpireAfter or whose
// size has crossed ByteThresholdPerState, then, if the combined size of
// every remaining session exceeds ByteThresholdAllStates, flushes
// everything in ascending start-time order.
func (t *Transform) sweep(out chan<- *event.LogEvent) {
	now := time.Now().UTC()
	for key, s := range t.sessions {
		if now.Sub(s.updatedAt) >= t.cfg.ExpireAfter || s.sizeEstimate() > t.cfg.ByteThresholdPerState {
			t.emit(key, s, out)
		}
	}

	total := 0
	for _, s := range t.sessions {
		total += s.sizeEstimate()
	}
	if total <= t.cfg.ByteThresholdAllStates {
		return
	}

	type ordered struct {
		key event.GroupKey
		s   *session
	}
	all := make([]ordered, 0, len(t.sessions))
	for key, s := range t.sessions {
		all = append(all, ordered{key, s})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].s.startedAt.Before(all[j].s.startedAt) })
	for _, o := range all {
		t.emit(o.key, o.s, out)
	}
}

func (t *Transform) flushAll(out chan<- *event.LogEvent) {
	keys := make([]event.GroupKey, 0, len(t.sessions))
	for k := range t.sessions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		t.emit(key, t.sessions[key], out)
	}
}

func (t *Transform) persist() {
	if t.store == nil {
		return
	}
	doc, err := t.snapshot()
	if err != nil {
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("failed to encode reduce checkpoint")
		return
	}
	if err := t.store.Set(t.cfg.ComponentID, stateKey, doc, 0); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("reduce", "set").Inc()
		log.WithTransform(t.cfg.ComponentID).Warn().Err(err).Msg("failed to persist reduce checkpoint")
		t.publish(events.KindPersistenceIO, "failed to persist reduce checkpoint: "+err.Error())
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
		Component: "reduce",
		Message:   msg,
		Fields:    map[string]string{"component_id": t.cfg.ComponentID},
	})
}

// Rehydrate loads any previously checkpointed sessions. Call before Run.
func (t *Transform) Rehydrate() error {
	if t.store == nil {
		return nil
	}
	raw, ok, err := t.store.Get(t.cfg.ComponentID, stateKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return t.restore(raw)
}
