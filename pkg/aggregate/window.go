package aggregate

import (
	"time"

	"github.com/cuemby/fluxion/pkg/event"
)

// window is one live aggregation window for a group key.
type window struct {
	start time.Time
	value event.Value
	meta  event.Metadata
}

// checkpointWindow is the persisted shape of a window: only start/value
// survive a restart. Finalizers are ephemeral — the spec's persistence
// model is best-effort durability of accumulated VALUES, not of
// outstanding acknowledgement state across a process restart.
type checkpointWindow struct {
	Start time.Time   `json:"start"`
	Value event.Value `json:"value"`
}

// keyEntry is the per-group-key deque of windows, ordered ascending by
// start time (oldest first).
type keyEntry struct {
	windows []*window
}

func (e *keyEntry) newest() *window {
	if len(e.windows) == 0 {
		return nil
	}
	return e.windows[len(e.windows)-1]
}
