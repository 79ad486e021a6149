package reduce

import "github.com/cuemby/fluxion/pkg/event"

// concatMerger joins successive byte (or array) values with an optional
// single-byte delimiter. delim == 0 means concat_raw: no separator at all.
type concatMerger struct {
	delim byte
	joins bool
	buf   []byte
	arr   []event.Value
	isArr bool
}

func newConcatMerger(first event.Value, delim byte) *concatMerger {
	m := &concatMerger{delim: delim, joins: delim != 0}
	m.add(first)
	return m
}

func (m *concatMerger) add(v event.Value) {
	if arr, ok := v.AsArray(); ok {
		m.isArr = true
		m.arr = append(m.arr, arr...)
		return
	}
	b, ok := v.AsBytes()
	if !ok {
		return
	}
	if m.isArr {
		return
	}
	if len(m.buf) > 0 && m.joins {
		m.buf = append(m.buf, m.delim)
	}
	m.buf = append(m.buf, b...)
}

func (m *concatMerger) value() event.Value {
	if m.isArr {
		return event.Array(m.arr...)
	}
	return event.Bytes(m.buf)
}

func (m *concatMerger) sizeEstimate() int {
	if m.isArr {
		total := 0
		for _, e := range m.arr {
			total += sizeOfValue(e)
		}
		return total
	}
	return len(m.buf)
}

// arrayMerger wraps every incoming value (including arrays, unflattened) as
// one more element of a growing array.
type arrayMerger struct {
	vs []event.Value
}

func newArrayMerger(first event.Value) *arrayMerger {
	m := &arrayMerger{}
	m.add(first)
	return m
}

func (m *arrayMerger) add(v event.Value)    { m.vs = append(m.vs, v) }
func (m *arrayMerger) value() event.Value   { return event.Array(m.vs...) }
func (m *arrayMerger) sizeEstimate() int {
	total := 0
	for _, v := range m.vs {
		total += sizeOfValue(v)
	}
	return total
}

// extremeArrayMerger keeps whichever array (longest or shortest, by element
// count) has been seen so far, replacing on ties toward the most recent.
type extremeArrayMerger struct {
	longest bool
	v       event.Value
}

func newExtremeArrayMerger(first event.Value, longest bool) *extremeArrayMerger {
	m := &extremeArrayMerger{longest: longest}
	m.add(first)
	return m
}

func (m *extremeArrayMerger) add(v event.Value) {
	arr, ok := v.AsArray()
	if !ok {
		return
	}
	cur, ok := m.v.AsArray()
	if !ok {
		m.v = v
		return
	}
	if m.longest && len(arr) >= len(cur) {
		m.v = v
	} else if !m.longest && len(arr) <= len(cur) {
		m.v = v
	}
}

func (m *extremeArrayMerger) value() event.Value { return m.v }
func (m *extremeArrayMerger) sizeEstimate() int  { return sizeOfValue(m.v) }
