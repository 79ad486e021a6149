package reduce

import "fmt"

// Strategy is the tagged-variant discriminant for a per-field merger. It is
// a closed enum (not an interface with runtime-registered implementations)
// so every merger is trivially cloneable and round-trips through a
// checkpoint without reflection.
type Strategy int

const (
	StrategyDiscard Strategy = iota
	StrategyRetain
	StrategySum
	StrategyMax
	StrategyMin
	StrategyConcat
	StrategyConcatNewline
	StrategyConcatRaw
	StrategyArray
	StrategyShortestArray
	StrategyLongestArray
	StrategyFlatUnique
	// strategyTimestampWindow is never user-selectable: it is the implicit
	// default strategy for Timestamp-kind fields, producing `field` and
	// `field_end`.
	strategyTimestampWindow
)

func (s Strategy) String() string {
	switch s {
	case StrategyDiscard:
		return "discard"
	case StrategyRetain:
		return "retain"
	case StrategySum:
		return "sum"
	case StrategyMax:
		return "max"
	case StrategyMin:
		return "min"
	case StrategyConcat:
		return "concat"
	case StrategyConcatNewline:
		return "concat_newline"
	case StrategyConcatRaw:
		return "concat_raw"
	case StrategyArray:
		return "array"
	case StrategyShortestArray:
		return "shortest_array"
	case StrategyLongestArray:
		return "longest_array"
	case StrategyFlatUnique:
		return "flat_unique"
	case strategyTimestampWindow:
		return "timestamp_window"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a config string onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "discard":
		return StrategyDiscard, nil
	case "retain":
		return StrategyRetain, nil
	case "sum":
		return StrategySum, nil
	case "max":
		return StrategyMax, nil
	case "min":
		return StrategyMin, nil
	case "concat":
		return StrategyConcat, nil
	case "concat_newline":
		return StrategyConcatNewline, nil
	case "concat_raw":
		return StrategyConcatRaw, nil
	case "array":
		return StrategyArray, nil
	case "shortest_array":
		return StrategyShortestArray, nil
	case "longest_array":
		return StrategyLongestArray, nil
	case "flat_unique":
		return StrategyFlatUnique, nil
	default:
		return StrategyDiscard, fmt.Errorf("reduce: unknown merge strategy %q", s)
	}
}
