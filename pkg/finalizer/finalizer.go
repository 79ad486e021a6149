package finalizer

import (
	"sync"
	"sync/atomic"
)

// BatchStatus is the terminal delivery status of a batch of events.
// Ordering matters: updates use max-ordering, so Rejected always wins.
type BatchStatus int32

const (
	Delivered BatchStatus = iota
	Errored
	Rejected
)

func (s BatchStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Errored:
		return "errored"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// BatchNotifier tracks the outstanding EventFinalizers for one batch of
// events produced by a source. Its status starts at Delivered and can only
// move up the Delivered < Errored < Rejected ordering. Once every
// EventFinalizer referencing it has been released, the final status is
// sent exactly once on the channel returned by New.
type BatchNotifier struct {
	status atomic.Int32
	refs   atomic.Int64
	done   chan BatchStatus
	once   sync.Once
}

// New creates a BatchNotifier and returns the channel its terminal status
// will be delivered on. The channel is buffered by one, so the receiving
// source does not have to be actively waiting at the moment it fires.
func New() (*BatchNotifier, <-chan BatchStatus) {
	n := &BatchNotifier{done: make(chan BatchStatus, 1)}
	n.status.Store(int32(Delivered))
	return n, n.done
}

// update folds status into the notifier's running max.
func (n *BatchNotifier) update(status BatchStatus) {
	for {
		cur := BatchStatus(n.status.Load())
		if status <= cur {
			return
		}
		if n.status.CompareAndSwap(int32(cur), int32(status)) {
			return
		}
	}
}

func (n *BatchNotifier) acquire() {
	n.refs.Add(1)
}

// release drops one reference. When the last reference drops, the final
// status is sent on the done channel exactly once.
func (n *BatchNotifier) release() {
	if n.refs.Add(-1) == 0 {
		n.once.Do(func() {
			n.done <- BatchStatus(n.status.Load())
			close(n.done)
		})
	}
}

// EventFinalizer is a single event's reference-counted handle into a
// BatchNotifier. Events hold zero, one, or (after a merge) several of
// these; an event with zero finalizers has nothing left to acknowledge
// (e.g. it was synthesized internally, not read from a source).
type EventFinalizer struct {
	notifier *BatchNotifier
	released atomic.Bool
}

// NewEventFinalizer binds a new finalizer to notifier, taking a reference.
func NewEventFinalizer(notifier *BatchNotifier) *EventFinalizer {
	notifier.acquire()
	return &EventFinalizer{notifier: notifier}
}

// Update records status against the underlying batch, folding it into the
// running max. Safe to call multiple times.
func (f *EventFinalizer) Update(status BatchStatus) {
	f.notifier.update(status)
}

// Release drops this finalizer's reference to its notifier. Idempotent:
// calling Release more than once is a no-op after the first call.
func (f *EventFinalizer) Release() {
	if f.released.CompareAndSwap(false, true) {
		f.notifier.release()
	}
}
