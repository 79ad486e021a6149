/*
Package events provides an in-memory broker for Fluxion's user-visible
diagnostic events.

Sources, transforms, and sinks raise an Event whenever the error taxonomy
calls for something "user-visible" (a parse error that drops input, a
capacity-exceeded eviction, a delivery failure) rather than panicking or
failing silently. The broker fans these out to whatever is listening —
the `fluxion run` diagnostics logger, a test harness asserting on diagnostics, or a
future webhook sink — without coupling the raising component to any
particular consumer.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Kind:      events.KindCapacityExceeded,
		Severity:  events.SeverityWarn,
		Component: "reduce",
		Message:   "state exceeded REDUCE_BYTE_THRESHOLD_PER_STATE, flushing early",
	})

Publish never blocks: a full broker queue drops the event, and a full
subscriber buffer just drops that subscriber's copy, so a stalled
consumer cannot back-pressure the data plane.
*/
package events
