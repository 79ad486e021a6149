package aggregate

import (
	"time"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
)

// MergeFunc folds a new event's payload into an accumulator. Called with
// a Null accum when a window is first opened, so MergeFunc implementations
// that treat Null as "no prior state" naturally seed the window with the
// first event's contribution.
type MergeFunc func(accum, ev event.Value) event.Value

// FlushCondition reports whether the accumulated value for a window
// should be emitted immediately, ahead of expiry.
type FlushCondition func(accum event.Value) bool

// Config enumerates the aggregating transform's tunables.
type Config struct {
	ComponentID string // scopes this instance's state store keys

	WindowDuration time.Duration
	MinWindowSize  time.Duration

	MemCardinalityLimit int // 0 means unlimited
	MemWindowLimit      int // 0 means unlimited

	FlushTickInterval        time.Duration
	PersistenceTickInterval  time.Duration
	PersistenceMaxJitter     time.Duration

	EventIDFields       []event.Path
	EventTimestampField event.Path // zero value means "use ingest clock"

	Source         MergeFunc
	FlushCondition FlushCondition // nil means "never flush early"

	// Broker, if set, receives a diagnostic event for each dropped input
	// and each persistence failure this instance hits.
	Broker *events.Broker
}

func (c Config) withDefaults() Config {
	if c.FlushTickInterval <= 0 {
		c.FlushTickInterval = time.Second
	}
	if c.PersistenceTickInterval <= 0 {
		c.PersistenceTickInterval = 30 * time.Second
	}
	if c.FlushCondition == nil {
		c.FlushCondition = func(event.Value) bool { return false }
	}
	return c
}
