package ddparser

import (
	"strconv"
	"time"

	"github.com/cuemby/fluxion/pkg/event"
)

// coerceInt accepts an integer, a float (truncated toward zero), or a
// decimal/scientific-notation string. Datadog agents send large unsigned
// integers as floats when they overflow int64, so truncation is deliberate
// rather than a loss of precision we failed to notice.
func coerceInt(v event.Value) (int64, bool) {
	switch v.Kind() {
	case event.KindInteger:
		i, _ := v.AsInt()
		return i, true
	case event.KindFloat:
		f, _ := v.AsFloat()
		return int64(f), true
	case event.KindBytes:
		s, _ := v.AsString()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// coerceFloat accepts only a native integer or float; unlike coerceInt it
// does not parse numeric strings, matching the span metrics sub-object's
// narrower tolerance.
func coerceFloat(v event.Value) (float64, bool) {
	switch v.Kind() {
	case event.KindInteger:
		i, _ := v.AsInt()
		return float64(i), true
	case event.KindFloat:
		return v.AsFloat()
	}
	return 0, false
}

// parseTimestampNanos interprets v as nanoseconds since the Unix epoch,
// accepting the same int/float/numeric-string shapes as coerceInt.
func parseTimestampNanos(v event.Value) (event.Value, bool) {
	ns, ok := coerceInt(v)
	if !ok {
		return event.Value{}, false
	}
	return event.Timestamp(time.Unix(0, ns)), true
}
