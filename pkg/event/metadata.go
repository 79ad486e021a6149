package event

import "github.com/cuemby/fluxion/pkg/finalizer"

// Metadata carries everything about an Event that is not part of its
// payload: the finalizers that propagate acknowledgement status back to
// the originating source, plus a small bag of side-channel fields
// transforms use to record provenance (data_provider, original_type, ...)
// without polluting the payload Value tree.
type Metadata struct {
	finalizers []*finalizer.EventFinalizer
	fields     map[string]Value
}

// NewMetadata returns empty metadata with no finalizers.
func NewMetadata() Metadata {
	return Metadata{}
}

// AddFinalizer attaches f to this metadata.
func (m *Metadata) AddFinalizer(f *finalizer.EventFinalizer) {
	m.finalizers = append(m.finalizers, f)
}

// Finalizers returns the finalizers currently attached.
func (m *Metadata) Finalizers() []*finalizer.EventFinalizer {
	return m.finalizers
}

// MergeFinalizers absorbs other's finalizers into m. This MUST be called
// whenever two events are combined (aggregate/reduce merges); failing to
// do so silently breaks end-to-end acknowledgement for the consumed event.
func (m *Metadata) MergeFinalizers(other *Metadata) {
	m.finalizers = append(m.finalizers, other.finalizers...)
	other.finalizers = nil
}

// UpdateStatus reports status on every finalizer attached to this
// metadata, e.g. when an event is dropped at capacity and must still
// signal Errored so ack accounting stays sound.
func (m *Metadata) UpdateStatus(status finalizer.BatchStatus) {
	for _, f := range m.finalizers {
		f.Update(status)
	}
}

// Release drops every finalizer reference held by this metadata. Called
// once an event reaches a sink and delivery has been reported, or once an
// event has been fully absorbed into a survivor by MergeFinalizers'
// caller.
func (m *Metadata) Release() {
	for _, f := range m.finalizers {
		f.Release()
	}
	m.finalizers = nil
}

// Set stores a side-channel metadata field (e.g. "original_type",
// "data_provider") outside of the event payload.
func (m *Metadata) Set(key string, val Value) {
	if m.fields == nil {
		m.fields = make(map[string]Value)
	}
	m.fields[key] = val
}

// Get retrieves a side-channel metadata field.
func (m *Metadata) Get(key string) (Value, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// Clone returns a shallow copy of m sharing no mutable backing state with
// the metadata fields map (finalizers are reference types and are shared,
// which is correct: both copies refer to the same underlying batch).
func (m Metadata) Clone() Metadata {
	out := Metadata{finalizers: append([]*finalizer.EventFinalizer(nil), m.finalizers...)}
	if m.fields != nil {
		out.fields = make(map[string]Value, len(m.fields))
		for k, v := range m.fields {
			out.fields[k] = v
		}
	}
	return out
}
