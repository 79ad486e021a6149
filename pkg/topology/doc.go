/*
Package topology assembles named sources, transforms, and sinks into a
directed graph and drives it to completion or cancellation. It is the
piece cmd/fluxion builds its fixed pipeline into: spec.md's modules
(ddparser, aggregate, reduce, tailsample, otlpmetrics) and pkg/source
adapters are all framed as nodes that read from zero or more upstream
channels and write to one downstream channel, wired together here rather
than by any one module knowing about its neighbors.

Run follows the same ticker/select shutdown idiom the rest of this
tree uses for long-running loops, generalized to a cooperative
context.Context instead of a bare stop channel: cancelling ctx (or any
node returning a non-nil error) propagates to every other node, and Run
waits for all of them to unwind before returning.
*/
package topology
