package event

// DefaultMessagePath and DefaultTimestampPath are the conventional
// locations for a LogEvent's distinguished fields when a component does
// not configure its own.
var (
	DefaultMessagePath   = ParsePath("message")
	DefaultTimestampPath = ParsePath("timestamp")
)

// LogEvent is a Value::Object root plus Metadata. The message and
// timestamp fields live at configurable paths rather than fixed struct
// fields, since sources disagree about where the user payload and event
// time actually live.
type LogEvent struct {
	Root     Value
	Metadata Metadata

	messagePath   Path
	timestampPath Path
}

// NewLogEvent wraps root with fresh, empty metadata and the default
// message/timestamp paths.
func NewLogEvent(root Value) *LogEvent {
	if root.Kind() != KindObject {
		root = ObjectFrom(map[string]Value{"message": root})
	}
	return &LogEvent{
		Root:          root,
		Metadata:      NewMetadata(),
		messagePath:   DefaultMessagePath,
		timestampPath: DefaultTimestampPath,
	}
}

// WithMessagePath overrides the path used by Message/SetMessage.
func (e *LogEvent) WithMessagePath(p Path) *LogEvent {
	e.messagePath = p
	return e
}

// WithTimestampPath overrides the path used by Timestamp/SetTimestamp.
func (e *LogEvent) WithTimestampPath(p Path) *LogEvent {
	e.timestampPath = p
	return e
}

func (e *LogEvent) messagePathOrDefault() Path {
	if e.messagePath == nil {
		return DefaultMessagePath
	}
	return e.messagePath
}

func (e *LogEvent) timestampPathOrDefault() Path {
	if e.timestampPath == nil {
		return DefaultTimestampPath
	}
	return e.timestampPath
}

// Message returns the value at the event's configured message path.
func (e *LogEvent) Message() (Value, bool) {
	return Get(e.Root, e.messagePathOrDefault())
}

// SetMessage assigns val at the event's configured message path.
func (e *LogEvent) SetMessage(val Value) {
	Set(&e.Root, e.messagePathOrDefault(), val)
}

// Timestamp returns the value at the event's configured timestamp path.
func (e *LogEvent) Timestamp() (Value, bool) {
	return Get(e.Root, e.timestampPathOrDefault())
}

// SetTimestamp assigns val at the event's configured timestamp path.
func (e *LogEvent) SetTimestamp(val Value) {
	Set(&e.Root, e.timestampPathOrDefault(), val)
}

// Clone returns a deep copy of the payload with metadata cloned per
// Metadata.Clone's sharing rules (finalizers shared, fields copied).
func (e *LogEvent) Clone() *LogEvent {
	return &LogEvent{
		Root:          cloneValue(e.Root),
		Metadata:      e.Metadata.Clone(),
		messagePath:   e.messagePath,
		timestampPath: e.timestampPath,
	}
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.array))
		for i, elem := range v.array {
			out[i] = cloneValue(elem)
		}
		return Value{kind: KindArray, array: out}
	case KindObject:
		keys := append([]string(nil), v.keys...)
		obj := make(map[string]Value, len(v.object))
		for k, val := range v.object {
			obj[k] = cloneValue(val)
		}
		return Value{kind: KindObject, keys: keys, object: obj}
	default:
		return v
	}
}
