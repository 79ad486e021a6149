package event

import "time"

// Span is one leg of a Trace: the spec requires trace_id/span_id be
// represented as fixed-width integers, with parsers truncating
// decimal-string and scientific-notation inputs toward zero (Datadog
// agents send unsigned 64-bit ids as signed via bit reinterpretation).
type Span struct {
	TraceID  uint64
	SpanID   uint64
	ParentID uint64
	HasParent bool

	Start    time.Time
	Duration time.Duration
	Error    bool

	// Meta holds string-valued span tags, Metrics holds numeric-valued
	// span tags, and MetaStruct holds opaque, provider-encoded bytes
	// (e.g. msgpack-encoded structured payloads) that pass through
	// unparsed.
	Meta       map[string]string
	Metrics    map[string]float64
	MetaStruct map[string][]byte
}

// NewSpan returns a Span with initialized, empty tag bags.
func NewSpan(traceID, spanID uint64) Span {
	return Span{
		TraceID: traceID,
		SpanID:  spanID,
		Meta:    make(map[string]string),
		Metrics: make(map[string]float64),
	}
}

// SetParent records parentID as the span's parent, distinguishing a real
// parent id of zero from "no parent" (root span).
func (s *Span) SetParent(parentID uint64) {
	s.ParentID = parentID
	s.HasParent = true
}

// Trace is a trace event: payload metadata describing the producing agent
// plus the array of spans it reported in one payload chunk.
type Trace struct {
	Env            string
	Host           string
	TracerVersion  string
	AgentVersion   string
	SamplingRates  map[string]float64
	Tags           map[string]string

	Spans []Span

	Metadata Metadata
}

// NewTrace returns an empty Trace ready to have spans appended.
func NewTrace() *Trace {
	return &Trace{
		SamplingRates: make(map[string]float64),
		Tags:          make(map[string]string),
		Metadata:      NewMetadata(),
	}
}

// RootSpans returns the subset of t.Spans with no recorded parent.
func (t *Trace) RootSpans() []Span {
	var out []Span
	for _, s := range t.Spans {
		if !s.HasParent {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy, sharing metadata finalizers per Metadata.Clone.
func (t *Trace) Clone() *Trace {
	out := &Trace{
		Env: t.Env, Host: t.Host, TracerVersion: t.TracerVersion, AgentVersion: t.AgentVersion,
		Metadata: t.Metadata.Clone(),
	}
	out.SamplingRates = make(map[string]float64, len(t.SamplingRates))
	for k, v := range t.SamplingRates {
		out.SamplingRates[k] = v
	}
	out.Tags = make(map[string]string, len(t.Tags))
	for k, v := range t.Tags {
		out.Tags[k] = v
	}
	out.Spans = make([]Span, len(t.Spans))
	for i, s := range t.Spans {
		cp := s
		cp.Meta = make(map[string]string, len(s.Meta))
		for k, v := range s.Meta {
			cp.Meta[k] = v
		}
		cp.Metrics = make(map[string]float64, len(s.Metrics))
		for k, v := range s.Metrics {
			cp.Metrics[k] = v
		}
		cp.MetaStruct = make(map[string][]byte, len(s.MetaStruct))
		for k, v := range s.MetaStruct {
			cp.MetaStruct[k] = append([]byte(nil), v...)
		}
		out.Spans[i] = cp
	}
	return out
}
