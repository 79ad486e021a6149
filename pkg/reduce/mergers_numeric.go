package reduce

import "github.com/cuemby/fluxion/pkg/event"

type numberOp int

const (
	numberSum numberOp = iota
	numberMax
	numberMin
)

// numberMerger accumulates Integer or Float values under sum/max/min.
// Once any Float input is observed the accumulator permanently switches to
// float arithmetic, matching the promotion rule a mixed-type numeric field
// needs: an int-only session stays exact, a session that ever sees a float
// reports a float from then on.
type numberMerger struct {
	op      numberOp
	isFloat bool
	i       int64
	f       float64
}

func newNumberMerger(first event.Value, op numberOp) *numberMerger {
	m := &numberMerger{op: op}
	if f, ok := first.AsFloat(); ok {
		m.isFloat = true
		m.f = f
	} else if i, ok := first.AsInt(); ok {
		m.i = i
	}
	return m
}

func (m *numberMerger) add(v event.Value) {
	if f, ok := v.AsFloat(); ok {
		m.promote()
		m.apply(f)
		return
	}
	if i, ok := v.AsInt(); ok {
		if m.isFloat {
			m.apply(float64(i))
			return
		}
		m.applyInt(i)
	}
}

func (m *numberMerger) promote() {
	if !m.isFloat {
		m.isFloat = true
		m.f = float64(m.i)
	}
}

func (m *numberMerger) apply(f float64) {
	switch m.op {
	case numberSum:
		m.f += f
	case numberMax:
		if f > m.f {
			m.f = f
		}
	case numberMin:
		if f < m.f {
			m.f = f
		}
	}
}

func (m *numberMerger) applyInt(i int64) {
	switch m.op {
	case numberSum:
		m.i += i
	case numberMax:
		if i > m.i {
			m.i = i
		}
	case numberMin:
		if i < m.i {
			m.i = i
		}
	}
}

func (m *numberMerger) value() event.Value {
	if m.isFloat {
		return event.Float(m.f)
	}
	return event.Int(m.i)
}

// sizeEstimate is always 8 bytes: a sum/max/min accumulator is a single
// fixed-width scalar regardless of whether it currently holds an int or a
// float.
func (m *numberMerger) sizeEstimate() int { return 8 }
