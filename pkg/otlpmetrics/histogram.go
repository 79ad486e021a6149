package otlpmetrics

import (
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"
)

// defaultHistogramBounds mirrors Prometheus' default histogram buckets,
// used when a distribution-typed metric carries no explicit bounds of its
// own to bucket against.
var defaultHistogramBounds = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// samplesToBuckets counts raw samples into the explicit, ascending bounds
// provided, following the OTLP convention that bucket i covers
// (bounds[i-1], bounds[i]] with an implicit +Inf bucket catching the rest.
// Exact counting is used (rather than a sketch) because the caller already
// holds every raw sample.
func samplesToBuckets(samples []float64, bounds []float64) (buckets []Bucket, count uint64, sum float64) {
	if len(bounds) == 0 {
		bounds = defaultHistogramBounds
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)

	counts := make([]uint64, len(sorted)+1)
	for _, s := range samples {
		sum += s
		count++
		idx := sort.SearchFloat64s(sorted, s)
		// SearchFloat64s returns the first bound >= s, so a value equal to a
		// bound already lands in that bound's bucket; the loop below never
		// moves idx past such a bound.
		for idx < len(sorted) && sorted[idx] < s {
			idx++
		}
		counts[idx]++
	}

	buckets = make([]Bucket, len(sorted))
	var running uint64
	for i, upper := range sorted {
		running += counts[i]
		buckets[i] = Bucket{Count: running, Upper: upper}
	}
	return buckets, count, sum
}

// ddsketchQuantiles builds a DDSketch over samples and reports the value at
// each requested quantile. Used to enrich a bucketed histogram with
// quantile estimates the explicit bounds alone can't give precisely.
func ddsketchQuantiles(samples []float64, quantiles []float64) ([]Quantile, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return nil, err
	}
	for _, s := range samples {
		if err := sketch.Add(s); err != nil {
			return nil, err
		}
	}

	out := make([]Quantile, 0, len(quantiles))
	for _, q := range quantiles {
		v, err := sketch.GetValueAtQuantile(q)
		if err != nil {
			continue
		}
		out = append(out, Quantile{Quantile: q, Value: v})
	}
	return out, nil
}
