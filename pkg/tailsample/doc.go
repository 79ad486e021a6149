/*
Package tailsample implements the tail-sampling transform.

Spans are buffered per trace_id until the root span arrives (the one
missing a parent_span_id). The root's evaluation against an ordered list
of conditionals decides the trace's fate: the first matching conditional
wins, and at rate r only every k*r+1-th match is kept. The decision,
buffered children, and per-conditional rate counters all live in a
statestore.Store so a restart resumes the same rate-limiting sequence
instead of restarting it from zero.

Unlike pkg/aggregate and pkg/reduce, a trace's lifetime has no flush
ticker: every decision is made synchronously off the event that triggers
it (the root span), so Transform has no Run loop of its own beyond a
thin per-event Ingest call.
*/
package tailsample
