package reduce

import (
	"time"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/fluxconfig"
)

const (
	defaultExpireAfter            = 30 * time.Second
	defaultFlushTickInterval      = 1 * time.Second
	defaultByteThresholdPerState  = 100 * 1024
	defaultByteThresholdAllStates = 1024 * 1024
)

// DateFormat pairs a (possibly "message."-prefixed) field path with the
// strftime-style layout used to parse it on ingress and re-render it on
// flush, so a session's emitted timestamp fields preserve their original
// textual representation rather than becoming RFC3339 unconditionally.
type DateFormat struct {
	Path   event.Path
	Layout string
}

// Config parameterizes one reducing Transform instance.
type Config struct {
	ComponentID string

	// GroupBy lists the paths (e.g. "message.request_id") whose values
	// form the discriminant that selects a session; resolved directly
	// against each event's root. Fields named here are always forced to
	// the discard strategy even if MergeStrategies configures something
	// else for them.
	GroupBy []event.Path

	// MergeStrategies assigns an explicit Strategy to message-view fields,
	// keyed by field name with any "message." prefix stripped. Fields not
	// listed fall back to defaultMerger's per-kind behavior.
	MergeStrategies map[string]Strategy

	// DateFormats lists fields that should be parsed as timestamps on
	// ingress and re-rendered in their original format on flush.
	DateFormats []DateFormat

	// StartsWhen, if set, is evaluated against each incoming event's root.
	// When it returns true the current session (if any) flushes first,
	// excluding this event, and this event opens the next session.
	StartsWhen func(event.Value) bool

	// EndsWhen, if set, is evaluated against each incoming event's root.
	// When it returns true this event is folded into the session and the
	// session flushes immediately, including this event.
	EndsWhen func(event.Value) bool

	// ExpireAfter is the idle duration after which a session with no new
	// events flushes on its own. Defaults to 30s.
	ExpireAfter time.Duration

	// FlushTickInterval is how often the expiry/threshold sweep runs.
	// Defaults to 1s.
	FlushTickInterval time.Duration

	// ByteThresholdPerState flushes a single session, on the next tick,
	// once its estimated size exceeds this many bytes. Defaults to 100KiB;
	// overridden by the REDUCE_BYTE_THRESHOLD_PER_STATE env var.
	ByteThresholdPerState int

	// ByteThresholdAllStates flushes every non-expired session, oldest
	// first by start time, once the combined estimated size of all
	// sessions exceeds this many bytes. Defaults to 1MiB; overridden by
	// the REDUCE_BYTE_THRESHOLD_ALL_STATES env var.
	ByteThresholdAllStates int

	// PersistenceTickInterval, if set and Store is non-nil, checkpoints
	// session state on this cadence in addition to on shutdown.
	PersistenceTickInterval time.Duration
	PersistenceMaxJitter    time.Duration

	// Broker, if set, receives a diagnostic event for each persistence
	// failure this instance hits.
	Broker *events.Broker
}

func (c Config) withDefaults() Config {
	if c.ExpireAfter <= 0 {
		c.ExpireAfter = defaultExpireAfter
	}
	if c.FlushTickInterval <= 0 {
		c.FlushTickInterval = defaultFlushTickInterval
	}
	if c.ByteThresholdPerState <= 0 {
		if v, ok := fluxconfig.ReduceByteThresholdPerState(); ok {
			c.ByteThresholdPerState = v
		} else {
			c.ByteThresholdPerState = defaultByteThresholdPerState
		}
	}
	if c.ByteThresholdAllStates <= 0 {
		if v, ok := fluxconfig.ReduceByteThresholdAllStates(); ok {
			c.ByteThresholdAllStates = v
		} else {
			c.ByteThresholdAllStates = defaultByteThresholdAllStates
		}
	}
	if c.PersistenceTickInterval <= 0 {
		c.PersistenceTickInterval = 30 * time.Second
	}
	if c.MergeStrategies == nil {
		c.MergeStrategies = map[string]Strategy{}
	}
	return c
}
