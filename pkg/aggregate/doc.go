/*
Package aggregate implements the sliding-window aggregating transform.

Per group key (the hashed tuple of event_id_fields) the transform holds an
ordered deque of overlapping aggregation windows. Every incoming event is
folded into every live window whose [start, start+window_duration) range
contains its event time, and opens a new window when the event is far
enough ahead of the newest window's start. Windows become emittable once
their range expires or a user-supplied flush_condition fires on the
accumulated value.

The transform is single-threaded and cooperative: one goroutine owns all
window state and is driven by a select loop racing the input channel
against a flush ticker, a jittered persistence ticker, and context
cancellation — mirroring the teacher's task/channel concurrency style
rather than introducing a mutex around shared state.
*/
package aggregate
