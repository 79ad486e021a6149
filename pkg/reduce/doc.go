/*
Package reduce implements the reducing (session-window) transform.

Per discriminant (the tuple of group_by field values) it holds a single
open accumulator: one merger per field name. Root-level fields use
default-by-kind strategies; fields nested under a "message" object are
looked up by their bare name in the configured MergeStrategies, so a
transform operating on the message body can use expressive strategies
(concat, array, sum, ...) without that configuration ever reaching
group_by or other root-level bookkeeping fields, which are always forced
to discard.

A session flushes when an end predicate fires on the current event
(included), a start predicate fires (current event excluded, starts the
next session), the session has been idle longer than expire_after, or a
size threshold is exceeded. All four paths funnel through the same single-
threaded Run loop driven by a select over the input channel and a flush
ticker, mirroring pkg/aggregate's concurrency shape.
*/
package reduce
