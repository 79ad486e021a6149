package reduce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cuemby/fluxion/pkg/event"
)

const stateKey = "state"

// checkpointDoc is the on-disk shape for a reduce transform's sessions. It
// carries an explicit schema version so a future layout change can detect
// and refuse (or migrate) an older checkpoint rather than silently
// misreading it.
type checkpointDoc struct {
	Version  int                          `json:"version"`
	Sessions map[string]checkpointSession `json:"sessions"`
}

const checkpointVersion = 1

type checkpointSession struct {
	StartedAt time.Time                  `json:"started_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
	GroupBy   map[string]event.Value     `json:"group_by"`
	Fields    map[string]checkpointField `json:"fields"`
	DateKinds map[string]event.Kind      `json:"date_kinds,omitempty"`
}

// checkpointField captures just enough of a merger to reconstruct it:
// which Strategy it was built with and the raw value(s) it holds. Array-
// backed mergers (array, concat-as-array, flat_unique) persist Values;
// scalar mergers persist Value plus, for timestamp, a second "latest"
// value.
type checkpointField struct {
	Strategy Strategy     `json:"strategy"`
	Value    event.Value  `json:"value"`
	Latest   event.Value  `json:"latest,omitempty"`
	Values   []event.Value `json:"values,omitempty"`
}

func snapshotField(name string, m merger, forced map[string]bool) checkpointField {
	if forced[name] {
		return checkpointField{Strategy: StrategyDiscard, Value: m.value()}
	}
	switch tm := m.(type) {
	case *timestampMerger:
		return checkpointField{Strategy: strategyTimestampWindow, Value: tm.started, Latest: tm.latest}
	case *arrayMerger:
		return checkpointField{Strategy: StrategyArray, Values: tm.vs}
	case *flatUniqueMerger:
		return checkpointField{Strategy: StrategyFlatUnique, Values: tm.order}
	case *concatMerger:
		if tm.isArr {
			return checkpointField{Strategy: StrategyConcat, Values: tm.arr}
		}
		return checkpointField{Strategy: concatStrategyTag(tm), Value: event.Bytes(tm.buf)}
	case *extremeArrayMerger:
		s := StrategyShortestArray
		if tm.longest {
			s = StrategyLongestArray
		}
		return checkpointField{Strategy: s, Value: tm.v}
	case *numberMerger:
		s := numberStrategyTag(tm.op)
		return checkpointField{Strategy: s, Value: tm.value()}
	case *retainMerger:
		return checkpointField{Strategy: StrategyRetain, Value: tm.v}
	default:
		return checkpointField{Strategy: StrategyDiscard, Value: m.value()}
	}
}

func concatStrategyTag(m *concatMerger) Strategy {
	switch m.delim {
	case ' ':
		return StrategyConcat
	case '\n':
		return StrategyConcatNewline
	default:
		return StrategyConcatRaw
	}
}

func numberStrategyTag(op numberOp) Strategy {
	switch op {
	case numberMax:
		return StrategyMax
	case numberMin:
		return StrategyMin
	default:
		return StrategySum
	}
}

func restoreField(cf checkpointField) merger {
	switch cf.Strategy {
	case strategyTimestampWindow:
		m := newTimestampMerger(cf.Value)
		m.latest = cf.Latest
		return m
	case StrategyArray:
		return &arrayMerger{vs: cf.Values}
	case StrategyFlatUnique:
		m := &flatUniqueMerger{seen: make(map[string]struct{})}
		for _, v := range cf.Values {
			m.insert(v)
		}
		return m
	case StrategyConcat, StrategyConcatNewline, StrategyConcatRaw:
		delim := byte(' ')
		if cf.Strategy == StrategyConcatNewline {
			delim = '\n'
		} else if cf.Strategy == StrategyConcatRaw {
			delim = 0
		}
		m := &concatMerger{delim: delim, joins: delim != 0}
		if len(cf.Values) > 0 {
			m.isArr = true
			m.arr = cf.Values
			return m
		}
		b, _ := cf.Value.AsBytes()
		m.buf = b
		return m
	case StrategyShortestArray:
		return &extremeArrayMerger{longest: false, v: cf.Value}
	case StrategyLongestArray:
		return &extremeArrayMerger{longest: true, v: cf.Value}
	case StrategySum:
		return newNumberMerger(cf.Value, numberSum)
	case StrategyMax:
		return newNumberMerger(cf.Value, numberMax)
	case StrategyMin:
		return newNumberMerger(cf.Value, numberMin)
	case StrategyRetain:
		return &retainMerger{v: cf.Value}
	default:
		return &discardMerger{v: cf.Value}
	}
}

func (t *Transform) snapshot() (string, error) {
	doc := checkpointDoc{Version: checkpointVersion, Sessions: make(map[string]checkpointSession, len(t.sessions))}
	for key, s := range t.sessions {
		cs := checkpointSession{
			StartedAt: s.startedAt,
			UpdatedAt: s.updatedAt,
			GroupBy:   s.groupBy,
			DateKinds: s.dateKinds,
		}
		cs.Fields = make(map[string]checkpointField, len(s.fields))
		for name, m := range s.fields {
			cs.Fields[name] = snapshotField(name, m, t.forced)
		}
		doc.Sessions[strconv.FormatUint(uint64(key), 10)] = cs
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("reduce: encode checkpoint: %w", err)
	}
	return string(data), nil
}

func (t *Transform) restore(raw string) error {
	var doc checkpointDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("reduce: decode checkpoint: %w", err)
	}
	if doc.Version != checkpointVersion {
		return fmt.Errorf("reduce: unsupported checkpoint version %d", doc.Version)
	}
	for keyStr, cs := range doc.Sessions {
		keyHash, err := strconv.ParseUint(keyStr, 10, 64)
		if err != nil {
			continue
		}
		s := newSession(cs.StartedAt)
		s.updatedAt = cs.UpdatedAt
		if cs.GroupBy != nil {
			s.groupBy = cs.GroupBy
		}
		if cs.DateKinds != nil {
			s.dateKinds = cs.DateKinds
		}
		for name, cf := range cs.Fields {
			s.fields[name] = restoreField(cf)
		}
		t.sessions[event.GroupKey(keyHash)] = s
	}
	return nil
}
