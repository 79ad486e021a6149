package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_JSONRoundTrip(t *testing.T) {
	original := ObjectFrom(map[string]Value{
		"s":   String("hello"),
		"i":   Int(42),
		"f":   Float(1.5),
		"b":   Bool(true),
		"n":   Null(),
		"arr": Array(Int(1), Int(2), Int(3)),
		"ts":  Timestamp(time.Unix(1700000000, 123).UTC()),
	})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.True(t, Equal(original, decoded))
}

func TestValue_JSONPreservesKeyOrder(t *testing.T) {
	original := Object()
	original.SetField("z", Int(1))
	original.SetField("a", Int(2))

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, []string{"z", "a"}, decoded.Keys())
}
