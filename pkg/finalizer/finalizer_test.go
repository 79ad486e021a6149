package finalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchNotifier_SingleFinalizer(t *testing.T) {
	notifier, done := New()
	f := NewEventFinalizer(notifier)
	f.Update(Delivered)
	f.Release()

	status := <-done
	assert.Equal(t, Delivered, status)
}

func TestBatchNotifier_MaxOrdering(t *testing.T) {
	notifier, done := New()
	a := NewEventFinalizer(notifier)
	b := NewEventFinalizer(notifier)
	c := NewEventFinalizer(notifier)

	a.Update(Delivered)
	b.Update(Rejected)
	c.Update(Errored)

	a.Release()
	b.Release()
	c.Release()

	require.Equal(t, Rejected, <-done)
}

func TestBatchNotifier_OrderingIsMonotonic(t *testing.T) {
	notifier, done := New()
	f := NewEventFinalizer(notifier)

	f.Update(Rejected)
	f.Update(Delivered) // must not downgrade
	f.Release()

	assert.Equal(t, Rejected, <-done)
}

func TestBatchNotifier_SentExactlyOnce(t *testing.T) {
	notifier, done := New()
	f := NewEventFinalizer(notifier)
	f.Release()
	f.Release() // idempotent, must not double-send or panic on closed channel

	<-done
	_, ok := <-done
	assert.False(t, ok, "channel must be closed after terminal status is sent")
}

func TestBatchNotifier_NoFinalizersNeverFires(t *testing.T) {
	notifier, done := New()
	_ = notifier

	select {
	case <-done:
		t.Fatal("notifier with zero acquired finalizers must not fire")
	default:
	}
}

func TestEventFinalizer_ReleaseIdempotent(t *testing.T) {
	notifier, done := New()
	f := NewEventFinalizer(notifier)

	f.Release()
	require.NotPanics(t, func() {
		f.Release()
		f.Release()
	})
	<-done
}
