package pulsar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	tenant, namespace, name, err := parseTopic("persistent://public/default/events")
	require.NoError(t, err)
	assert.Equal(t, "public", tenant)
	assert.Equal(t, "default", namespace)
	assert.Equal(t, "events", name)
}

func TestParseTopic_WithoutScheme(t *testing.T) {
	tenant, namespace, name, err := parseTopic("public/default/events")
	require.NoError(t, err)
	assert.Equal(t, "public", tenant)
	assert.Equal(t, "default", namespace)
	assert.Equal(t, "events", name)
}

func TestParseTopic_Malformed(t *testing.T) {
	_, _, _, err := parseTopic("not-a-topic")
	assert.Error(t, err)
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, SubscriptionShared, c.SubscriptionType)
	assert.Equal(t, PositionLatest, c.ConsumerPosition)
	assert.Equal(t, 1000, c.BatchSize)
	assert.Greater(t, c.TopicRefreshInterval, time.Duration(0))
}

func TestConfig_WithDefaults_PreservesExplicitValues(t *testing.T) {
	c := Config{
		SubscriptionType:     SubscriptionFailover,
		ConsumerPosition:     PositionEarliest,
		BatchSize:            50,
		TopicRefreshInterval: 90 * time.Second,
	}.withDefaults()
	assert.Equal(t, SubscriptionFailover, c.SubscriptionType)
	assert.Equal(t, PositionEarliest, c.ConsumerPosition)
	assert.Equal(t, 50, c.BatchSize)
	assert.Equal(t, 90*time.Second, c.TopicRefreshInterval)
}
