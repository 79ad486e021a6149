/*
Package ddparser implements the Datadog Agent payload parser.

One incoming event carries a single JSON trace payload under "message",
discriminated by a version field into the legacy v1 shape (an APITrace
with optional transactions) or the current v2 shape (a TracerPayload with
chunks). Parse fans that one event out into zero or more trace events,
each carrying under "message" a flat object annotated with source_type,
payload_version, and the normalised span data the version's shape provides.

Span normalisation is shared between both versions: required traceID/
spanID (numeric-ish: integer, float truncated toward zero, or a decimal/
scientific-notation string), optional parentID/start/duration/error, and
meta/metrics/meta_struct sub-objects each filtered to the one Value kind
they're allowed to carry.
*/
package ddparser
