package event

import "strings"

// Path addresses a location in a Value tree as an ordered list of object
// keys. Fluxion paths do not support array indexing; every field the spec
// names (event_id_fields, event_timestamp_field, trace_id_field, message,
// group_by, ...) is a dotted chain of object keys.
type Path []string

// ParsePath splits a dotted path string ("message.request_id") into a Path.
// An empty string yields an empty Path, which addresses the root itself.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func (p Path) String() string { return strings.Join(p, ".") }

// Get walks path from v's root and returns the value found there.
func Get(v Value, path Path) (Value, bool) {
	cur := v
	for _, key := range path {
		next, ok := cur.Field(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Set walks/creates path from v's root and assigns val at the leaf,
// creating intermediate objects as needed. Calling Set with an empty path
// replaces v wholesale.
func Set(v *Value, path Path, val Value) {
	if len(path) == 0 {
		*v = val
		return
	}
	if v.kind != KindObject {
		*v = Object()
	}
	if len(path) == 1 {
		v.SetField(path[0], val)
		return
	}
	child, ok := v.Field(path[0])
	if !ok || child.kind != KindObject {
		child = Object()
	}
	Set(&child, path[1:], val)
	v.SetField(path[0], child)
}

// Delete removes the value at path, if present.
func Delete(v *Value, path Path) {
	if len(path) == 0 || v.kind != KindObject {
		return
	}
	if len(path) == 1 {
		v.DeleteField(path[0])
		return
	}
	child, ok := v.Field(path[0])
	if !ok {
		return
	}
	Delete(&child, path[1:])
	v.SetField(path[0], child)
}
