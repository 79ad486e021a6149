package reduce

import (
	"time"

	"github.com/cuemby/fluxion/pkg/event"
)

// session is one open discriminant's accumulated state: a single flat set
// of field mergers. Fields discovered at the event root use default-by-kind
// strategies; fields discovered nested under "message" are looked up by
// their bare name (the "message." prefix stripped) in the configured
// MergeStrategies map, letting a transform express rich per-field behavior
// for the user payload without that configuration ever reaching into
// root-level bookkeeping fields like group_by keys.
type session struct {
	startedAt time.Time
	updatedAt time.Time

	groupBy map[string]event.Value

	fields map[string]merger

	meta event.Metadata

	// dateKinds remembers, per configured date field, that the field was
	// coerced to a Timestamp on ingress so it can be rendered back into
	// its configured textual format on flush.
	dateKinds map[string]event.Kind
}

func newSession(now time.Time) *session {
	return &session{
		startedAt: now,
		updatedAt: now,
		groupBy:   make(map[string]event.Value),
		fields:    make(map[string]merger),
		meta:      event.NewMetadata(),
		dateKinds: make(map[string]event.Kind),
	}
}

func (s *session) sizeEstimate() int {
	total := 0
	for _, m := range s.fields {
		total += m.sizeEstimate()
	}
	return total
}

// mergeInto folds v under key into fields, constructing a new merger on
// first sight. forced fields (group_by members) are always discard;
// configured fields use their assigned Strategy; everything else falls
// back to defaultMerger's per-kind behavior.
func mergeInto(fields map[string]merger, strategies map[string]Strategy, forced map[string]bool, key string, v event.Value) {
	if existing, ok := fields[key]; ok {
		existing.add(v)
		return
	}
	if forced[key] {
		fields[key] = newMerger(StrategyDiscard, v)
		return
	}
	if s, ok := strategies[key]; ok {
		fields[key] = newMerger(s, v)
		return
	}
	fields[key] = defaultMerger(v)
}

// finalize materializes this session's accumulated fields into a single
// flat object, expanding any timestampMerger into its two-field
// (field/field_end) form.
func (s *session) finalize() event.Value {
	out := event.Object()
	for k, v := range s.groupBy {
		out.SetField(k, v)
	}
	for k, m := range s.fields {
		if tm, ok := m.(*timestampMerger); ok {
			out.SetField(k, tm.value())
			out.SetField(k+"_end", tm.ended())
			continue
		}
		out.SetField(k, m.value())
	}
	return out
}
