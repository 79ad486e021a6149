package reduce

import "github.com/cuemby/fluxion/pkg/event"

// flatUniqueMerger keeps a deduplicated set of scalars, flattening Object
// values (by their field values) and Array values (by their elements) one
// level before inserting; nested containers below that level are inserted
// as-is (no recursive flatten). Insertion order is preserved for
// deterministic output.
type flatUniqueMerger struct {
	seen  map[string]struct{}
	order []event.Value
	size  int
}

func newFlatUniqueMerger(first event.Value) *flatUniqueMerger {
	m := &flatUniqueMerger{seen: make(map[string]struct{})}
	m.add(first)
	return m
}

func (m *flatUniqueMerger) add(v event.Value) {
	switch v.Kind() {
	case event.KindArray:
		arr, _ := v.AsArray()
		for _, e := range arr {
			m.insert(e)
		}
	case event.KindObject:
		for _, k := range v.Keys() {
			f, _ := v.Field(k)
			m.insert(f)
		}
	default:
		m.insert(v)
	}
}

func (m *flatUniqueMerger) insert(v event.Value) {
	key := event.CanonicalKey(v)
	if _, ok := m.seen[key]; ok {
		return
	}
	m.seen[key] = struct{}{}
	m.order = append(m.order, v)
	m.size += sizeOfValue(v)
}

func (m *flatUniqueMerger) value() event.Value  { return event.Array(m.order...) }
func (m *flatUniqueMerger) sizeEstimate() int   { return m.size }

// timestampMerger is the implicit default strategy for Timestamp-kind
// fields. It tracks the first ("started") and most recent ("latest")
// timestamp added, in arrival order; Flush
// materializes both, writing started under the field's own name and latest
// under "<field>_end".
type timestampMerger struct {
	started event.Value
	latest  event.Value
}

func newTimestampMerger(first event.Value) *timestampMerger {
	return &timestampMerger{started: first, latest: first}
}

func (m *timestampMerger) add(v event.Value) {
	if v.Kind() != event.KindTimestamp {
		return
	}
	m.latest = v
}

// value returns the session-start timestamp; callers that need both ends
// must use started()/ended() directly rather than the merger interface.
func (m *timestampMerger) value() event.Value { return m.started }
func (m *timestampMerger) sizeEstimate() int  { return 16 }

func (m *timestampMerger) ended() event.Value { return m.latest }
