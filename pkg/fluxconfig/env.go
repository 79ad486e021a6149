package fluxconfig

import (
	"os"
	"strconv"
	"time"
)

const (
	// EnvReduceByteThresholdPerState overrides reduce.Config's per-session
	// flush threshold when a pipeline definition leaves it unset.
	EnvReduceByteThresholdPerState = "REDUCE_BYTE_THRESHOLD_PER_STATE"

	// EnvReduceByteThresholdAllStates overrides reduce.Config's combined
	// flush threshold across all live sessions.
	EnvReduceByteThresholdAllStates = "REDUCE_BYTE_THRESHOLD_ALL_STATES"

	// EnvPodName scopes persisted state (statestore bucket/file naming) to
	// the identity of the pod this process is running as, so two replicas
	// sharing a volume never collide on the same keys.
	EnvPodName = "POD_NAME"

	// EnvPulsarTopicRefreshSecs sets how often a partitioned-topic source
	// re-resolves its topic list against the broker.
	EnvPulsarTopicRefreshSecs = "MEZMO_PULSAR_TOPIC_REFRESH_SECS"

	defaultPulsarTopicRefreshSecs = 30
)

// ReduceByteThresholdPerState reads EnvReduceByteThresholdPerState. ok is
// false when the variable is unset or not a positive integer, in which
// case the caller should keep its own default.
func ReduceByteThresholdPerState() (value int, ok bool) {
	return positiveIntEnv(EnvReduceByteThresholdPerState)
}

// ReduceByteThresholdAllStates reads EnvReduceByteThresholdAllStates. ok
// is false when the variable is unset or not a positive integer.
func ReduceByteThresholdAllStates() (value int, ok bool) {
	return positiveIntEnv(EnvReduceByteThresholdAllStates)
}

// PodName returns EnvPodName verbatim, or "" if unset. An empty value
// means callers should not namespace by pod at all.
func PodName() string {
	return os.Getenv(EnvPodName)
}

// PulsarTopicRefreshInterval reads EnvPulsarTopicRefreshSecs, falling
// back to 30s when unset or invalid.
func PulsarTopicRefreshInterval() time.Duration {
	secs, ok := positiveIntEnv(EnvPulsarTopicRefreshSecs)
	if !ok {
		secs = defaultPulsarTopicRefreshSecs
	}
	return time.Duration(secs) * time.Second
}

func positiveIntEnv(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
