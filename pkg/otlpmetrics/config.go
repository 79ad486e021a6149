package otlpmetrics

import (
	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
)

// Config parameterizes forward and backward conversion.
type Config struct {
	ComponentID string

	// MessagePath is the path to the metric's name/value/tags object.
	// Defaults to "message".
	MessagePath event.Path

	// TimestampPath is the path to the metric's observation instant.
	// Defaults to "timestamp".
	TimestampPath event.Path

	// Quantiles are the quantile levels estimated via DDSketch for each
	// distribution point and attached to its OTLP histogram point as
	// exemplars. Defaults to p50/p90/p99 when nil.
	Quantiles []float64

	// Broker, if set, receives a diagnostic event for each data point this
	// package fails to convert in either direction.
	Broker *events.Broker
}

var defaultQuantiles = []float64{0.5, 0.9, 0.99}

func (c Config) withDefaults() Config {
	if len(c.MessagePath) == 0 {
		c.MessagePath = event.ParsePath("message")
	}
	if len(c.TimestampPath) == 0 {
		c.TimestampPath = event.ParsePath("timestamp")
	}
	if c.Quantiles == nil {
		c.Quantiles = defaultQuantiles
	}
	return c
}
