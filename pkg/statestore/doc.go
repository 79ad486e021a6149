/*
Package statestore implements Fluxion's component-scoped key/value state
persistence (checkpointed window state for the aggregating transform,
session state for the reducing transform, decision/counter state for the
tail sampler).

Keys are strings, values are UTF-8 strings — transforms serialize their
own state as JSON before calling Set and deserialize it after Get. Every
operation is scoped by a component identifier so several transform
instances share one physical store (one bbolt file, one bucket per
component) without key collisions.

Storage is best-effort durable: per the error handling design, I/O
failures are logged and returned to the caller, but callers MUST treat a
persistence error as "continue processing, state is now possibly stale"
rather than a reason to stop the pipeline.

BoltStore is the production implementation, backed by go.etcd.io/bbolt.
Memory is an in-process implementation with identical TTL semantics used
in tests and in standalone/dev runs where durability is not required.
*/
package statestore
