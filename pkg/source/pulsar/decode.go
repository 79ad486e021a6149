package pulsar

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/source"
)

// JSONDecoder decodes a message payload as either a single JSON object or
// a JSON array of objects, the two shapes Pulsar producers in this
// pipeline are expected to publish. Any other JSON shape (a bare number,
// string, or array of non-objects) is rejected rather than silently
// wrapped, since every downstream transform expects an object root.
func JSONDecoder() source.Decoder {
	return func(msg *source.RawMessage) ([]event.Value, error) {
		var raw any
		if err := json.Unmarshal(msg.Payload, &raw); err != nil {
			return nil, fmt.Errorf("pulsar: decode json payload: %w", err)
		}

		if arr, ok := raw.([]any); ok {
			out := make([]event.Value, 0, len(arr))
			for _, elem := range arr {
				obj, ok := elem.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("pulsar: json array element is not an object")
				}
				out = append(out, fromJSONObject(obj))
			}
			return out, nil
		}

		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("pulsar: json payload is not an object or array of objects")
		}
		return []event.Value{fromJSONObject(obj)}, nil
	}
}

func fromJSONObject(obj map[string]any) event.Value {
	fields := make(map[string]event.Value, len(obj))
	for k, v := range obj {
		fields[k] = fromJSONAny(v)
	}
	return event.ObjectFrom(fields)
}

func fromJSONAny(v any) event.Value {
	switch val := v.(type) {
	case nil:
		return event.Null()
	case bool:
		return event.Bool(val)
	case float64:
		return event.Float(val)
	case string:
		return event.String(val)
	case map[string]any:
		return fromJSONObject(val)
	case []any:
		elems := make([]event.Value, len(val))
		for i, e := range val {
			elems[i] = fromJSONAny(e)
		}
		return event.Array(elems...)
	default:
		return event.Null()
	}
}
