/*
Package finalizer implements Fluxion's end-to-end acknowledgement fabric.

A BatchNotifier is created by a source for a batch of events it is about to
emit. Each event in the batch holds an EventFinalizer referencing that
notifier. As events flow through transforms they may be merged together —
merging MUST carry every input event's finalizers onto the survivor via
event.Metadata.MergeFinalizers, or the corresponding sources never learn
the batch's fate.

When the last EventFinalizer referencing a BatchNotifier is released (by a
sink after a delivery attempt, or by a transform dropping an event at
capacity), the notifier computes the max of every status it was ever told
about and sends it once on its channel. Status ordering is
Delivered < Errored < Rejected, so one rejected event in a batch is enough
to mark the whole batch Rejected.
*/
package finalizer
