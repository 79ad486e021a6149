package pulsar

import (
	"fmt"
	"regexp"
	"time"

	plsr "github.com/apache/pulsar-client-go/pulsar"

	"github.com/cuemby/fluxion/pkg/fluxconfig"
)

// SubscriptionType mirrors Pulsar's own subscription type enum as a
// small string constant rather than importing the client's type into
// every caller's config literal.
type SubscriptionType string

const (
	SubscriptionExclusive SubscriptionType = "exclusive"
	SubscriptionShared    SubscriptionType = "shared"
	SubscriptionFailover  SubscriptionType = "failover"
	SubscriptionKeyShared SubscriptionType = "key_shared"
)

// ConsumerPosition selects where a brand-new subscription starts reading.
type ConsumerPosition string

const (
	PositionEarliest ConsumerPosition = "earliest"
	PositionLatest   ConsumerPosition = "latest"
)

// AuthConfig configures exactly one of bearer-token or OAuth2 client
// credentials authentication against the broker.
type AuthConfig struct {
	Token  string
	OAuth2 *OAuth2Config
}

// OAuth2Config is the client-credentials grant Pulsar's Go client expects.
type OAuth2Config struct {
	IssuerURL      string
	CredentialsURL string
	Audience       string
	Scope          string
}

// DeadLetterQueuePolicy routes a message to a dead letter topic once it
// has been redelivered MaxRedeliverCount times without being acked.
type DeadLetterQueuePolicy struct {
	MaxRedeliverCount uint32
	DeadLetterTopic   string
}

// TLSConfig configures the broker connection's transport security.
type TLSConfig struct {
	CAFile            string
	VerifyCertificate bool
	VerifyHostname    bool
}

// ConnectionRetryOptions holds broker connection settings. NewReader
// passes ConnectionTimeout to the client as its connection timeout and
// MaxBackoff as its operation timeout; MinBackoff, MaxRetries, KeepAlive
// and ConnectionMaxIdle are not passed to the client.
type ConnectionRetryOptions struct {
	MinBackoff        time.Duration
	MaxBackoff        time.Duration
	MaxRetries        int
	ConnectionTimeout time.Duration
	KeepAlive         time.Duration
	ConnectionMaxIdle time.Duration
}

// Config parameterizes a Reader.
type Config struct {
	Endpoint         string
	Topics           []string
	ConsumerName     string
	SubscriptionName string
	PriorityLevel    int
	BatchSize        int

	Auth                  *AuthConfig
	DeadLetterQueuePolicy *DeadLetterQueuePolicy
	TLS                   *TLSConfig

	SubscriptionType SubscriptionType
	ConsumerPosition ConsumerPosition

	// BrokerRedeliveryEnabled is not read by NewReader or Reader. Whether
	// a batch the downstream pipeline could not deliver is nacked or acked
	// anyway is decided by source.Driver from source.Config's field of the
	// same name (default false: ack).
	BrokerRedeliveryEnabled bool

	// PartitionedTopicAutoDiscovery subscribes by regex against a single
	// topic's namespace instead of a static topic list, so partitions
	// added to that topic after startup are picked up automatically.
	// Requires exactly one entry in Topics.
	PartitionedTopicAutoDiscovery bool

	// TopicRefreshInterval controls how often a partitioned-topic
	// subscription re-resolves its topic list. Defaults to
	// fluxconfig.PulsarTopicRefreshInterval() (MEZMO_PULSAR_TOPIC_REFRESH_SECS).
	TopicRefreshInterval time.Duration

	ConnectionRetryOptions ConnectionRetryOptions
}

var topicParseRegex = regexp.MustCompile(`^(?:\w+://)?(?P<tenant>[^/]+)/(?P<namespace>[^/]+)/(?P<topic>.+)$`)

// parseTopic splits a fully qualified Pulsar topic name into its tenant,
// namespace, and topic components.
func parseTopic(topic string) (tenant, namespace, name string, err error) {
	m := topicParseRegex.FindStringSubmatch(topic)
	if m == nil {
		return "", "", "", fmt.Errorf("pulsar: topic must be in the format [protocol://]tenant/namespace/topic: %q", topic)
	}
	tenant, namespace, name = m[1], m[2], m[3]
	if tenant == "" || namespace == "" || name == "" {
		return "", "", "", fmt.Errorf("pulsar: topic must be in the format [protocol://]tenant/namespace/topic: %q", topic)
	}
	return tenant, namespace, name, nil
}

func (c Config) withDefaults() Config {
	if c.SubscriptionType == "" {
		c.SubscriptionType = SubscriptionShared
	}
	if c.ConsumerPosition == "" {
		c.ConsumerPosition = PositionLatest
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.TopicRefreshInterval <= 0 {
		c.TopicRefreshInterval = fluxconfig.PulsarTopicRefreshInterval()
	}
	if c.ConnectionRetryOptions.ConnectionTimeout <= 0 {
		c.ConnectionRetryOptions.ConnectionTimeout = 30 * time.Second
	}
	if c.ConnectionRetryOptions.KeepAlive <= 0 {
		c.ConnectionRetryOptions.KeepAlive = 20 * time.Second
	}
	if c.ConnectionRetryOptions.MaxBackoff <= 0 {
		c.ConnectionRetryOptions.MaxBackoff = 30 * time.Second
	}
	return c
}

func toPulsarSubscriptionType(t SubscriptionType) plsr.SubscriptionType {
	switch t {
	case SubscriptionExclusive:
		return plsr.Exclusive
	case SubscriptionFailover:
		return plsr.Failover
	case SubscriptionKeyShared:
		return plsr.KeyShared
	default:
		return plsr.Shared
	}
}

func toPulsarInitialPosition(p ConsumerPosition) plsr.SubscriptionInitialPosition {
	if p == PositionEarliest {
		return plsr.SubscriptionPositionEarliest
	}
	return plsr.SubscriptionPositionLatest
}
