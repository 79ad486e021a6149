package tailsample

import (
	"time"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
)

const (
	minTTL     = 15 * time.Second
	defaultTTL = 5 * time.Minute
)

// Conditional is one entry in the ordered conditionals list: the first
// whose Condition matches a root span wins, and the trace is kept on the
// first match and every Rate-th match after it (matches 1, Rate+1,
// 2*Rate+1, ...); Rate<=1 means "always".
type Conditional struct {
	OutputName string
	Rate       uint64
	Condition  func(root event.Value) bool
}

// Config parameterizes one tail-sampling Transform instance.
type Config struct {
	ComponentID string

	// TraceIDField and ParentSpanIDField are full paths resolved against
	// an event's root (e.g. "message.context.trace_id"). A span with no
	// value at ParentSpanIDField is the trace's root.
	TraceIDField      event.Path
	ParentSpanIDField event.Path

	Conditionals []Conditional

	// TTL bounds how long buffered events and decisions survive in the
	// store; the per-conditional rate counters are written without a TTL.
	// Values under 15s are clamped to the 5 minute default.
	TTL time.Duration

	// Broker, if set, receives a diagnostic event for each malformed input
	// and each persistence failure this instance hits.
	Broker *events.Broker
}

func (c Config) withDefaults() Config {
	if len(c.TraceIDField) == 0 {
		c.TraceIDField = event.ParsePath("message.trace_id")
	}
	if len(c.ParentSpanIDField) == 0 {
		c.ParentSpanIDField = event.ParsePath("message.parent_span_id")
	}
	if c.TTL < minTTL {
		c.TTL = defaultTTL
	}
	return c
}
