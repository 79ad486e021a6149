package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat_NaNCoercedToZero(t *testing.T) {
	v := Float(nan())
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.Equal(t, 0.0, f)
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestValue_SetFieldPreservesInsertionOrder(t *testing.T) {
	obj := Object()
	obj.SetField("z", Int(1))
	obj.SetField("a", Int(2))
	obj.SetField("m", Int(3))

	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
}

func TestValue_SetFieldOverwriteKeepsPosition(t *testing.T) {
	obj := Object()
	obj.SetField("a", Int(1))
	obj.SetField("b", Int(2))
	obj.SetField("a", Int(99))

	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	v, _ := obj.Field("a")
	n, _ := v.AsInt()
	assert.Equal(t, int64(99), n)
}

func TestValue_DeleteField(t *testing.T) {
	obj := Object()
	obj.SetField("a", Int(1))
	obj.SetField("b", Int(2))
	obj.DeleteField("a")

	assert.Equal(t, []string{"b"}, obj.Keys())
	_, ok := obj.Field("a")
	assert.False(t, ok)
}

func TestMerge_DeepMergesObjects(t *testing.T) {
	base := ObjectFrom(map[string]Value{
		"a": Int(1),
		"nested": ObjectFrom(map[string]Value{
			"x": Int(1),
			"y": Int(2),
		}),
	})
	other := ObjectFrom(map[string]Value{
		"b": Int(2),
		"nested": ObjectFrom(map[string]Value{
			"y": Int(20),
			"z": Int(3),
		}),
	})

	merged := Merge(base, other)

	a, _ := merged.Field("a")
	av, _ := a.AsInt()
	assert.Equal(t, int64(1), av)

	b, _ := merged.Field("b")
	bv, _ := b.AsInt()
	assert.Equal(t, int64(2), bv)

	nested, ok := merged.Field("nested")
	require.True(t, ok)
	x, _ := nested.Field("x")
	xv, _ := x.AsInt()
	assert.Equal(t, int64(1), xv)
	y, _ := nested.Field("y")
	yv, _ := y.AsInt()
	assert.Equal(t, int64(20), yv)
	z, _ := nested.Field("z")
	zv, _ := z.AsInt()
	assert.Equal(t, int64(3), zv)
}

func TestMerge_NonObjectReplacesWholesale(t *testing.T) {
	base := ObjectFrom(map[string]Value{"a": Int(1)})
	other := String("replacement")

	merged := Merge(base, other)
	s, ok := merged.AsString()
	require.True(t, ok)
	assert.Equal(t, "replacement", s)
}

func TestEqual_DeepStructural(t *testing.T) {
	a := Array(Int(1), ObjectFrom(map[string]Value{"x": Bool(true)}))
	b := Array(Int(1), ObjectFrom(map[string]Value{"x": Bool(true)}))
	c := Array(Int(1), ObjectFrom(map[string]Value{"x": Bool(false)}))

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestCanonicalKey_ObjectKeyOrderIndependent(t *testing.T) {
	a := ObjectFrom(map[string]Value{"a": Int(1), "b": Int(2)})
	b := Object()
	b.SetField("b", Int(2))
	b.SetField("a", Int(1))

	assert.Equal(t, CanonicalKey(a), CanonicalKey(b))
}

func TestTimestamp_ForcesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 1, 1, 12, 0, 0, 0, loc)

	v := Timestamp(local)
	ts, ok := v.AsTimestamp()
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, ts.Equal(local))
}

func TestPath_GetSetDelete(t *testing.T) {
	root := Object()
	Set(&root, ParsePath("message.request_id"), String("abc"))

	v, ok := Get(root, ParsePath("message.request_id"))
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "abc", s)

	Delete(&root, ParsePath("message.request_id"))
	_, ok = Get(root, ParsePath("message.request_id"))
	assert.False(t, ok)
}

func TestHashPaths_AbsentFieldIsStablePartOfIdentity(t *testing.T) {
	withField := ObjectFrom(map[string]Value{"a": Int(1), "b": Int(2)})
	withoutField := ObjectFrom(map[string]Value{"a": Int(1)})

	paths := []Path{ParsePath("a"), ParsePath("missing")}
	k1 := HashPaths(withField, paths)
	k2 := HashPaths(withoutField, paths)

	assert.Equal(t, k1, k2, "both lack 'missing'; should hash identically for the fields given")
}

func TestHashPaths_FieldOrderMatters(t *testing.T) {
	root := ObjectFrom(map[string]Value{"a": Int(1), "b": Int(2)})

	k1 := HashPaths(root, []Path{ParsePath("a"), ParsePath("b")})
	k2 := HashPaths(root, []Path{ParsePath("b"), ParsePath("a")})

	assert.NotEqual(t, k1, k2)
}
