package reduce

import "github.com/cuemby/fluxion/pkg/event"

// merger is the per-field accumulator interface. Every concrete type below
// implements exactly one Strategy; dispatch happens once at merger
// construction time (newMerger), never again per-event.
type merger interface {
	add(v event.Value)
	value() event.Value
	sizeEstimate() int
}

// newMerger builds the merger for an explicitly configured strategy, seeded
// with the first value observed for the field.
func newMerger(strategy Strategy, first event.Value) merger {
	switch strategy {
	case StrategyRetain:
		return &retainMerger{v: first}
	case StrategySum:
		return newNumberMerger(first, numberSum)
	case StrategyMax:
		return newNumberMerger(first, numberMax)
	case StrategyMin:
		return newNumberMerger(first, numberMin)
	case StrategyConcat:
		return newConcatMerger(first, ' ')
	case StrategyConcatNewline:
		return newConcatMerger(first, '\n')
	case StrategyConcatRaw:
		return newConcatMerger(first, 0)
	case StrategyArray:
		return newArrayMerger(first)
	case StrategyShortestArray:
		return newExtremeArrayMerger(first, false)
	case StrategyLongestArray:
		return newExtremeArrayMerger(first, true)
	case StrategyFlatUnique:
		return newFlatUniqueMerger(first)
	case strategyTimestampWindow:
		return newTimestampMerger(first)
	default:
		return &discardMerger{v: first}
	}
}

// defaultMerger picks the implicit per-kind strategy spec.md mandates when a
// field has no explicit configuration: Integer/Float sum, Timestamp window,
// everything else discard-first.
func defaultMerger(first event.Value) merger {
	switch first.Kind() {
	case event.KindInteger, event.KindFloat:
		return newNumberMerger(first, numberSum)
	case event.KindTimestamp:
		return newTimestampMerger(first)
	default:
		return &discardMerger{v: first}
	}
}

// sizeOfValue approximates the byte footprint of a Value for the reducing
// transform's threshold accounting. It is not exact JSON/wire size, only a
// stable proxy consistent with how each merger tracks its own growth.
func sizeOfValue(v event.Value) int {
	switch v.Kind() {
	case event.KindNull:
		return 0
	case event.KindBoolean:
		return 1
	case event.KindInteger, event.KindFloat, event.KindTimestamp:
		return 8
	case event.KindBytes:
		b, _ := v.AsBytes()
		return len(b)
	case event.KindRegex:
		r, _ := v.AsRegex()
		return len(r)
	case event.KindArray:
		arr, _ := v.AsArray()
		total := 0
		for _, e := range arr {
			total += sizeOfValue(e)
		}
		return total
	case event.KindObject:
		total := 0
		for _, k := range v.Keys() {
			f, _ := v.Field(k)
			total += len(k) + sizeOfValue(f)
		}
		return total
	default:
		return 0
	}
}

// discardMerger keeps the first value seen and ignores everything after.
type discardMerger struct{ v event.Value }

func (m *discardMerger) add(event.Value)    {}
func (m *discardMerger) value() event.Value { return m.v }
func (m *discardMerger) sizeEstimate() int  { return sizeOfValue(m.v) }

// retainMerger keeps the most recent non-null value.
type retainMerger struct{ v event.Value }

func (m *retainMerger) add(v event.Value) {
	if v.Kind() != event.KindNull {
		m.v = v
	}
}
func (m *retainMerger) value() event.Value { return m.v }
func (m *retainMerger) sizeEstimate() int  { return sizeOfValue(m.v) }
