/*
Package source provides the generic harness every streaming source
adapter (pkg/source/pulsar, and any future transport) drives through:
decode raw transport messages into LogEvents, attach standard metadata,
send them downstream, and resolve acknowledgement back to the transport
once delivery status is known.

Two acknowledgement modes are supported. In finalizer mode, a
BatchNotifier is attached to every event decoded from one raw message;
the message is only acked (or nacked) once every derived event has been
released downstream and the notifier reports a terminal BatchStatus. In
no-finalizer mode, a message is acked as soon as its events have been
handed to the output channel, without waiting for downstream processing
to finish.

A Driver never blocks a Reader's read loop on acknowledgement: each
batch's wait is driven by its own goroutine, and Run drains whatever is
still outstanding when the context is cancelled or the reader's stream
ends.
*/
package source
