package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetric_SetTagDropsEmptyValue(t *testing.T) {
	m := NewMetric("requests", Incremental)
	m.SetTag("env", "prod")
	m.SetTag("region", "")

	_, ok := m.Tags["region"]
	assert.False(t, ok, "empty tag values are semantically absent")
	assert.Equal(t, "prod", m.Tags["env"])
}

func TestMetric_SetTagOverwriteThenEmptyRemoves(t *testing.T) {
	m := NewMetric("requests", Absolute)
	m.SetTag("env", "prod")
	m.SetTag("env", "")

	_, ok := m.Tags["env"]
	assert.False(t, ok)
}

func TestMetric_CloneIsIndependent(t *testing.T) {
	m := NewMetric("latency", Absolute)
	m.Value = DistributionValue([]Sample{{Value: 1.0, Rate: 1}}, Histogram)

	clone := m.Clone()
	clone.Value.Samples[0].Value = 99

	assert.Equal(t, 1.0, m.Value.Samples[0].Value)
	assert.Equal(t, 99.0, clone.Value.Samples[0].Value)
}

func TestMetric_ArbitraryBag(t *testing.T) {
	m := NewMetric("sum_metric", Incremental)
	m.SetArbitrary("aggregation_temporality", String("cumulative"))

	v, ok := m.Arb("aggregation_temporality")
	assert.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "cumulative", s)
}
