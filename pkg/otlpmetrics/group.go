package otlpmetrics

import (
	"github.com/cuemby/fluxion/pkg/event"
	"github.com/twmb/murmur3"
)

// groupKey hashes a canonical Value into a stable uint64 identity, used to
// bucket internal events into (resource) -> (scope) -> (metric) groups
// during backward conversion without carrying the full canonical string
// around as a map key.
func groupKey(v event.Value) uint64 {
	return murmur3.Sum64([]byte(event.CanonicalKey(v)))
}

// metricIdentity is the grouping key for one OTLP metric stream: same
// name, value shape, and temporality/monotonicity collapse into one
// pmetric.Metric with multiple data points.
type metricIdentity struct {
	name        string
	kind        metricType
	temporality string
	isMonotonic bool
}

// resourceGroup buckets events sharing one resource identity.
type resourceGroup struct {
	resource event.Value
	scopes   map[uint64]*scopeGroup
}

// scopeGroup buckets events sharing one instrumentation scope within a
// resource.
type scopeGroup struct {
	scopeName    string
	scopeVersion string
	metrics      map[metricIdentity][]*event.LogEvent
}

// groupEvents partitions events into resource -> scope -> metric buckets
// using each event's side-channel resource/scope metadata, defaulting to
// an empty resource/scope when absent so ungrouped events still convert.
func groupEvents(events []*event.LogEvent) map[uint64]*resourceGroup {
	resources := make(map[uint64]*resourceGroup)

	for _, ev := range events {
		resourceVal, _ := ev.Metadata.Get("resource")
		resourceKey := groupKey(resourceVal)
		rg, ok := resources[resourceKey]
		if !ok {
			rg = &resourceGroup{resource: resourceVal, scopes: make(map[uint64]*scopeGroup)}
			resources[resourceKey] = rg
		}

		scopeVal, _ := ev.Metadata.Get("scope")
		scopeKey := groupKey(scopeVal)
		sg, ok := rg.scopes[scopeKey]
		if !ok {
			name, _ := scopeVal.Field("name")
			version, _ := scopeVal.Field("version")
			nameStr, _ := name.AsString()
			versionStr, _ := version.AsString()
			sg = &scopeGroup{scopeName: nameStr, scopeVersion: versionStr, metrics: make(map[metricIdentity][]*event.LogEvent)}
			rg.scopes[scopeKey] = sg
		}

		id := identityOf(ev)
		sg.metrics[id] = append(sg.metrics[id], ev)
	}

	return resources
}

func identityOf(ev *event.LogEvent) metricIdentity {
	msg, _ := ev.Message()
	name, _ := msg.Field("name")
	nameStr, _ := name.AsString()

	kindVal, _ := msg.Field("value")
	typeVal, _ := kindVal.Field("type")
	typeStr, _ := typeVal.AsString()

	temporality := "cumulative"
	if t, ok := ev.Metadata.Get("aggregation_temporality"); ok {
		if s, isStr := t.AsString(); isStr {
			temporality = s
		}
	}

	isMonotonic := false
	if m, ok := ev.Metadata.Get("is_monotonic"); ok {
		isMonotonic, _ = m.AsBool()
	}

	return metricIdentity{name: nameStr, kind: metricType(typeStr), temporality: temporality, isMonotonic: isMonotonic}
}
