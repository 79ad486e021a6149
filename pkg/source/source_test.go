package source

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/finalizer"
)

// fakeReader replays a fixed list of messages, then io.EOF, and records
// every Ack/Nack it receives.
type fakeReader struct {
	mu       sync.Mutex
	messages []*RawMessage
	pos      int
	acked    []AckID
	nacked   []AckID
	closed   bool
}

func (r *fakeReader) Read(ctx context.Context) (*RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.messages) {
		return nil, io.EOF
	}
	msg := r.messages[r.pos]
	r.pos++
	return msg, nil
}

func (r *fakeReader) Ack(ctx context.Context, id AckID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acked = append(r.acked, id)
	return nil
}

func (r *fakeReader) Nack(ctx context.Context, id AckID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacked = append(r.nacked, id)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestDriver_NoFinalizerMode_AcksImmediatelyOnEnqueue(t *testing.T) {
	reader := &fakeReader{messages: []*RawMessage{
		{Payload: []byte("one"), ID: "msg-1"},
		{Payload: []byte("two"), ID: "msg-2"},
	}}
	d := New(Config{SourceID: "test"}, reader)

	out := make(chan *event.LogEvent, 8)
	err := d.Run(context.Background(), out)
	require.NoError(t, err)

	var got []string
	for ev := range out {
		msg, _ := ev.Message()
		s, _ := msg.AsString()
		got = append(got, s)
	}
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Equal(t, []AckID{AckID("msg-1"), AckID("msg-2")}, reader.acked)
	assert.Empty(t, reader.nacked)
}

func TestDriver_FinalizerMode_AcksOnlyAfterRelease(t *testing.T) {
	reader := &fakeReader{messages: []*RawMessage{
		{Payload: []byte("one"), ID: "msg-1"},
	}}
	d := New(Config{SourceID: "test", FinalizerMode: true}, reader)

	out := make(chan *event.LogEvent, 8)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), out) }()

	ev, ok := <-out
	require.True(t, ok)
	// Nothing acked yet: the finalizer has not been released.
	time.Sleep(10 * time.Millisecond)
	reader.mu.Lock()
	assert.Empty(t, reader.acked)
	reader.mu.Unlock()

	ev.Metadata.Release()
	require.NoError(t, <-done)

	reader.mu.Lock()
	assert.Equal(t, []AckID{AckID("msg-1")}, reader.acked)
	reader.mu.Unlock()
}

func TestDriver_FinalizerMode_ErroredWithoutBrokerRedelivery_AcksAnyway(t *testing.T) {
	reader := &fakeReader{messages: []*RawMessage{
		{Payload: []byte("one"), ID: "msg-1"},
	}}
	d := New(Config{SourceID: "test", FinalizerMode: true}, reader)

	out := make(chan *event.LogEvent, 8)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), out) }()

	ev := <-out
	ev.Metadata.UpdateStatus(finalizer.Errored)
	ev.Metadata.Release()
	require.NoError(t, <-done)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, []AckID{AckID("msg-1")}, reader.acked, "default policy acks a failed batch rather than leaving an ack hole")
	assert.Empty(t, reader.nacked)
}

func TestDriver_FinalizerMode_RejectedWithBrokerRedelivery_Nacks(t *testing.T) {
	reader := &fakeReader{messages: []*RawMessage{
		{Payload: []byte("one"), ID: "msg-1"},
	}}
	d := New(Config{SourceID: "test", FinalizerMode: true, BrokerRedeliveryEnabled: true}, reader)

	out := make(chan *event.LogEvent, 8)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), out) }()

	ev := <-out
	ev.Metadata.UpdateStatus(finalizer.Rejected)
	ev.Metadata.Release()
	require.NoError(t, <-done)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, []AckID{AckID("msg-1")}, reader.nacked)
	assert.Empty(t, reader.acked)
}

func TestDriver_DecodeErrorAcksWithoutEmitting(t *testing.T) {
	reader := &fakeReader{messages: []*RawMessage{
		{Payload: []byte("bad"), ID: "msg-1"},
	}}
	cfg := Config{
		SourceID: "test",
		Decode: func(msg *RawMessage) ([]event.Value, error) {
			return nil, assertErr
		},
	}
	d := New(cfg, reader)

	out := make(chan *event.LogEvent, 8)
	require.NoError(t, d.Run(context.Background(), out))

	_, ok := <-out
	assert.False(t, ok, "a message that fails to decode emits nothing")
	assert.Equal(t, []AckID{AckID("msg-1")}, reader.acked)
}

func TestDriver_AttachesHeadersAndExtraMetadata(t *testing.T) {
	reader := &fakeReader{messages: []*RawMessage{
		{
			Payload:   []byte("one"),
			ID:        "msg-1",
			Timestamp: time.Unix(1700000000, 0),
			Headers:   map[string]string{"trace": "abc"},
			Extra:     map[string]event.Value{"topic": event.String("events-topic")},
		},
	}}
	d := New(Config{SourceID: "test"}, reader)

	out := make(chan *event.LogEvent, 8)
	require.NoError(t, d.Run(context.Background(), out))

	ev := <-out
	headers, ok := ev.Metadata.Get("headers")
	require.True(t, ok)
	trace, _ := headers.Field("trace")
	s, _ := trace.AsString()
	assert.Equal(t, "abc", s)

	topic, ok := ev.Metadata.Get("topic")
	require.True(t, ok)
	s, _ = topic.AsString()
	assert.Equal(t, "events-topic", s)
}

var assertErr = errDecode{}

type errDecode struct{}

func (errDecode) Error() string { return "decode failed" }
