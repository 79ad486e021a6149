package events

import (
	"sync"
	"time"
)

// Severity classifies a user-visible diagnostic event.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Kind names the category of condition a diagnostic event reports,
// mirroring the rows of the error taxonomy that are user-visible.
type Kind string

const (
	KindParseError       Kind = "parse_error"
	KindConversionError  Kind = "conversion_error"
	KindTemplateError    Kind = "template_error"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindPersistenceIO    Kind = "persistence_io"
	KindDeliveryFailure  Kind = "delivery_failure"
	KindSourceReadError  Kind = "source_read_error"
)

// Event is a user-visible diagnostic raised by a component while
// processing the stream. It is distinct from pkg/event.Event (the data
// plane payload): this is operator-facing telemetry about the pipeline
// itself, not the pipeline's data.
type Event struct {
	ID        string
	Kind      Kind
	Severity  Severity
	Component string
	Timestamp time.Time
	Message   string
	Fields    map[string]string
}

// Subscriber is a channel that receives diagnostic events.
type Subscriber chan *Event

// Broker fans diagnostic events out to every interested subscriber
// (the `fluxion run` diagnostics logger, an internal test harness, a future
// webhook sink). Publish never blocks the publishing component: a full
// broker queue drops the event, and a full subscriber buffer just drops
// that subscriber's copy of the event.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new diagnostic event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes a diagnostic event to all subscribers.
func (b *Broker) Publish(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- ev:
	case <-b.stopCh:
	default:
	}
}

func (b *Broker) run() {
	for {
		select {
		case ev := <-b.eventCh:
			b.broadcast(ev)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
