package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireValue is Value's on-the-wire shape, used by checkpointed transform
// state (aggregate windows, reduce sessions, tail-sample buffers) that
// must serialize a Value tree to the state store and read it back
// without losing the Kind discriminator. Ordinary event payloads coming
// from parsers build Values directly; this codec exists for Fluxion's
// own internal persistence, not for wire protocols.
type wireValue struct {
	Type      string           `json:"type"`
	Bool      *bool            `json:"bool,omitempty"`
	Int       *int64           `json:"int,omitempty"`
	Float     *float64         `json:"float,omitempty"`
	Bytes     []byte           `json:"bytes,omitempty"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
	Array     []Value          `json:"array,omitempty"`
	Keys      []string         `json:"keys,omitempty"`
	Object    map[string]Value `json:"object,omitempty"`
	Regex     *string          `json:"regex,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{Type: v.kind.String()}
	switch v.kind {
	case KindNull:
	case KindBoolean:
		w.Bool = &v.boolean
	case KindInteger:
		w.Int = &v.integer
	case KindFloat:
		w.Float = &v.float
	case KindBytes:
		w.Bytes = v.bytes
	case KindTimestamp:
		t := v.timestamp
		w.Timestamp = &t
	case KindArray:
		w.Array = v.array
	case KindObject:
		w.Keys = v.keys
		w.Object = v.object
	case KindRegex:
		w.Regex = &v.regex
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case "null", "":
		*v = Null()
	case "boolean":
		*v = Bool(w.Bool != nil && *w.Bool)
	case "integer":
		if w.Int == nil {
			return fmt.Errorf("event: integer value missing int field")
		}
		*v = Int(*w.Int)
	case "float":
		if w.Float == nil {
			return fmt.Errorf("event: float value missing float field")
		}
		*v = Float(*w.Float)
	case "bytes":
		*v = Bytes(w.Bytes)
	case "timestamp":
		if w.Timestamp == nil {
			return fmt.Errorf("event: timestamp value missing timestamp field")
		}
		*v = Timestamp(*w.Timestamp)
	case "array":
		*v = Array(w.Array...)
	case "object":
		obj := Object()
		for _, k := range w.Keys {
			obj.SetField(k, w.Object[k])
		}
		*v = obj
	case "regex":
		if w.Regex == nil {
			return fmt.Errorf("event: regex value missing regex field")
		}
		*v = Regex(*w.Regex)
	default:
		return fmt.Errorf("event: unknown value type %q", w.Type)
	}
	return nil
}
