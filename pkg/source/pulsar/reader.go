package pulsar

import (
	"context"
	"fmt"
	"regexp"

	plsr "github.com/apache/pulsar-client-go/pulsar"
	gocache "github.com/patrickmn/go-cache"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/source"
)

const topicListCacheKey = "topics"

// Reader is a pkg/source.Reader backed by a single Pulsar consumer.
type Reader struct {
	cfg      Config
	client   plsr.Client
	consumer plsr.Consumer

	// topicCache holds the configured topic list, stored once by NewReader
	// with a TopicRefreshInterval expiry; nothing refreshes it.
	topicCache *gocache.Cache
}

// ackHandle is the concrete AckID Reader hands back through RawMessage;
// it is unwrapped in Ack/Nack to recover the original plsr.Message.
type ackHandle struct {
	msg plsr.Message
}

// NewReader dials the broker and opens a consumer per cfg.
func NewReader(cfg Config) (*Reader, error) {
	cfg = cfg.withDefaults()

	client, err := buildClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("pulsar: connect: %w", err)
	}

	consumer, err := buildConsumer(client, cfg)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pulsar: subscribe: %w", err)
	}

	r := &Reader{
		cfg:        cfg,
		client:     client,
		consumer:   consumer,
		topicCache: gocache.New(cfg.TopicRefreshInterval, 2*cfg.TopicRefreshInterval),
	}
	r.topicCache.Set(topicListCacheKey, cfg.Topics, gocache.DefaultExpiration)
	return r, nil
}

func buildClient(cfg Config) (plsr.Client, error) {
	opts := plsr.ClientOptions{
		URL:               cfg.Endpoint,
		ConnectionTimeout: cfg.ConnectionRetryOptions.ConnectionTimeout,
		OperationTimeout:  cfg.ConnectionRetryOptions.MaxBackoff,
	}
	if cfg.Auth != nil {
		auth, err := buildAuth(cfg.Auth)
		if err != nil {
			return nil, err
		}
		opts.Authentication = auth
	}
	if cfg.TLS != nil {
		opts.TLSTrustCertsFilePath = cfg.TLS.CAFile
		opts.TLSAllowInsecureConnection = !cfg.TLS.VerifyCertificate
		opts.TLSValidateHostname = cfg.TLS.VerifyHostname
	}
	return plsr.NewClient(opts)
}

func buildAuth(a *AuthConfig) (plsr.Authentication, error) {
	switch {
	case a.OAuth2 != nil:
		return plsr.NewAuthenticationOAuth2WithParams(map[string]string{
			"issuerUrl":  a.OAuth2.IssuerURL,
			"privateKey": a.OAuth2.CredentialsURL,
			"audience":   a.OAuth2.Audience,
			"scope":      a.OAuth2.Scope,
		}), nil
	case a.Token != "":
		return plsr.NewAuthenticationToken(a.Token), nil
	default:
		return nil, fmt.Errorf("pulsar: auth configured with neither a token nor oauth2 credentials")
	}
}

// buildConsumer mirrors the two subscription strategies Pulsar source
// configs support: a static topic list, or regex discovery against a
// single topic's namespace so new partitions are picked up without a
// restart. The latter primes the topic by creating and immediately
// discarding a producer, since partitions otherwise only materialize
// lazily on first publish and a regex subscription can't see partitions
// that don't exist yet.
func buildConsumer(client plsr.Client, cfg Config) (plsr.Consumer, error) {
	opts := plsr.ConsumerOptions{
		SubscriptionName:            cfg.SubscriptionName,
		Type:                        toPulsarSubscriptionType(cfg.SubscriptionType),
		SubscriptionInitialPosition: toPulsarInitialPosition(cfg.ConsumerPosition),
		Name:                        cfg.ConsumerName,
		ReceiverQueueSize:           cfg.BatchSize,
	}
	if cfg.DeadLetterQueuePolicy != nil {
		opts.DLQ = &plsr.DLQPolicy{
			MaxDeliveries:   cfg.DeadLetterQueuePolicy.MaxRedeliverCount,
			DeadLetterTopic: cfg.DeadLetterQueuePolicy.DeadLetterTopic,
		}
	}

	if cfg.PartitionedTopicAutoDiscovery {
		if len(cfg.Topics) != 1 {
			return nil, fmt.Errorf("partitioned_topic_auto_discovery requires exactly one topic, got %d", len(cfg.Topics))
		}
		if _, _, _, err := parseTopic(cfg.Topics[0]); err != nil {
			return nil, err
		}

		producer, err := client.CreateProducer(plsr.ProducerOptions{Topic: cfg.Topics[0]})
		if err != nil {
			return nil, fmt.Errorf("priming topic %s: %w", cfg.Topics[0], err)
		}
		producer.Close()

		opts.TopicsPattern = regexp.QuoteMeta(cfg.Topics[0]) + ".*"
		opts.AutoDiscoveryPeriod = cfg.TopicRefreshInterval
	} else {
		opts.Topics = cfg.Topics
	}

	return client.Subscribe(opts)
}

// Read blocks until the next message arrives or ctx is done.
func (r *Reader) Read(ctx context.Context) (*source.RawMessage, error) {
	msg, err := r.consumer.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return r.toRawMessage(msg), nil
}

func (r *Reader) toRawMessage(msg plsr.Message) *source.RawMessage {
	id := msg.ID()
	return &source.RawMessage{
		Payload:   msg.Payload(),
		Timestamp: msg.PublishTime(),
		Headers:   msg.Properties(),
		Extra: map[string]event.Value{
			"topic":             event.String(msg.Topic()),
			"producer_name":     event.String(msg.ProducerName()),
			"message_ledger_id": event.Int(id.LedgerID()),
			"message_entry_id":  event.Int(id.EntryID()),
		},
		ID: ackHandle{msg: msg},
	}
}

func (r *Reader) Ack(ctx context.Context, id source.AckID) error {
	h, ok := id.(ackHandle)
	if !ok {
		return fmt.Errorf("pulsar: unexpected ack id type %T", id)
	}
	return r.consumer.Ack(h.msg)
}

func (r *Reader) Nack(ctx context.Context, id source.AckID) error {
	h, ok := id.(ackHandle)
	if !ok {
		return fmt.Errorf("pulsar: unexpected ack id type %T", id)
	}
	r.consumer.Nack(h.msg)
	return nil
}

func (r *Reader) Close() error {
	r.consumer.Close()
	r.client.Close()
	return nil
}

// Topics returns the configured topic list (from topicCache while its
// entry is live, else cfg.Topics). Partitions found by auto-discovery are
// not reported.
func (r *Reader) Topics() []string {
	if v, ok := r.topicCache.Get(topicListCacheKey); ok {
		return v.([]string)
	}
	return r.cfg.Topics
}
