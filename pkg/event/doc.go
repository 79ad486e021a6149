/*
Package event defines Fluxion's shared event model: the tagged union that
every source, transform, and sink in the pipeline operates over.

An Event is one of a LogEvent, a Metric, or a Trace. All three are built on
top of Value, a small recursive tree type (null, bool, integer, float,
bytes, timestamp, array, object, regex) that mirrors how the data actually
arrives on the wire — self-describing, order-preserving for objects, and
safe to deep-merge.

Every event carries a Metadata with zero or more EventFinalizers
(see package finalizer) so that acknowledgement status can propagate from
a sink all the way back to the source that produced it, even after the
event has been merged into another one by a stateful transform.
*/
package event
