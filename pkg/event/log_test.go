package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEvent_DefaultMessageAndTimestampPaths(t *testing.T) {
	ev := NewLogEvent(ObjectFrom(map[string]Value{
		"message":   String("hello"),
		"timestamp": Timestamp(time.Unix(0, 0)),
	}))

	msg, ok := ev.Message()
	require.True(t, ok)
	s, _ := msg.AsString()
	assert.Equal(t, "hello", s)

	ts, ok := ev.Timestamp()
	require.True(t, ok)
	_, tsOK := ts.AsTimestamp()
	assert.True(t, tsOK)
}

func TestLogEvent_ConfigurableMessagePath(t *testing.T) {
	ev := NewLogEvent(ObjectFrom(map[string]Value{
		"log": ObjectFrom(map[string]Value{"body": String("payload")}),
	})).WithMessagePath(ParsePath("log.body"))

	msg, ok := ev.Message()
	require.True(t, ok)
	s, _ := msg.AsString()
	assert.Equal(t, "payload", s)
}

func TestLogEvent_SetMessageCreatesIntermediateObjects(t *testing.T) {
	ev := NewLogEvent(Object())
	ev.SetMessage(String("hi"))

	msg, ok := ev.Message()
	require.True(t, ok)
	s, _ := msg.AsString()
	assert.Equal(t, "hi", s)
}

func TestLogEvent_CloneIsDeep(t *testing.T) {
	ev := NewLogEvent(ObjectFrom(map[string]Value{"message": String("a")}))
	clone := ev.Clone()
	clone.SetMessage(String("b"))

	origMsg, _ := ev.Message()
	s, _ := origMsg.AsString()
	assert.Equal(t, "a", s)
}

func TestLogEvent_NonObjectRootWrappedAsMessage(t *testing.T) {
	ev := NewLogEvent(String("bare string"))
	msg, ok := ev.Message()
	require.True(t, ok)
	s, _ := msg.AsString()
	assert.Equal(t, "bare string", s)
}
