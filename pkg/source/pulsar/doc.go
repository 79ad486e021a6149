/*
Package pulsar implements a pkg/source.Reader backed by an Apache Pulsar
consumer. It mirrors Pulsar's own subscription model: shared/exclusive/
failover/key_shared subscription types, earliest/latest starting
position, dead letter queue policies, and token or OAuth2 authentication.

Every consumed message attaches its topic, producer name, and message
ledger/entry ids as standard event metadata alongside the decoded
payload, so a transform that needs to trace an event back to its Pulsar
coordinates can do so without a dedicated lookup.

Avoiding acks creates ack holes that become expensive to recover from on
the broker side, so by default a failed batch is acked anyway rather
than nacked; source.Config's BrokerRedeliveryEnabled opts into nacking
instead, trading the ack hole risk for an actual redelivery attempt.
*/
package pulsar
