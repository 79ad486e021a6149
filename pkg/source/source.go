package source

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/finalizer"
	"github.com/cuemby/fluxion/pkg/log"
	"github.com/cuemby/fluxion/pkg/metrics"
)

// AckID identifies one raw message to a Reader's Ack/Nack calls. Concrete
// readers define their own underlying representation (pulsar's wraps the
// received pulsar.Message).
type AckID any

// RawMessage is one unit of input read off a transport, before framing
// and deserialization.
type RawMessage struct {
	Payload []byte

	// Timestamp is the transport's publish/ingest instant, if it has one.
	Timestamp time.Time

	// Headers carries the message's own property/header map, attached to
	// every derived event's metadata under "headers".
	Headers map[string]string

	// Extra carries transport-specific standard metadata (topic, ledger
	// and entry ids, producer name, sequence id, ...), attached verbatim
	// to every derived event's metadata.
	Extra map[string]event.Value

	ID AckID
}

// Decoder turns one RawMessage's payload into zero or more event roots.
// One transport message commonly frames several events (e.g. a
// newline-delimited batch), so Decode returns a slice rather than one
// Value.
type Decoder func(msg *RawMessage) ([]event.Value, error)

// Reader is the narrow surface a concrete transport adapter must
// implement for Driver to drive it generically.
type Reader interface {
	// Read blocks until the next message is available or ctx is done. It
	// returns io.EOF once the underlying stream is exhausted and no more
	// messages will ever arrive.
	Read(ctx context.Context) (*RawMessage, error)
	Ack(ctx context.Context, id AckID) error
	Nack(ctx context.Context, id AckID) error
	Close() error
}

// Config parameterizes Driver.
type Config struct {
	SourceID string

	Decode Decoder

	// FinalizerMode, when true, defers acking a message until every event
	// it decoded into has been released downstream, acking or nacking
	// according to the resulting BatchStatus. When false, a message is
	// acked as soon as its events are handed to the output channel.
	FinalizerMode bool

	// BrokerRedeliveryEnabled controls how an Errored/Rejected batch
	// resolves in finalizer mode. Nacking triggers transport redelivery,
	// but leaving messages un-acked for too long exhausts broker-side
	// redelivery tracking, so the default (false) acks anyway and accepts
	// the drop rather than accumulate ack holes.
	BrokerRedeliveryEnabled bool

	Broker *events.Broker
}

func (c Config) withDefaults() Config {
	if c.Decode == nil {
		c.Decode = func(msg *RawMessage) ([]event.Value, error) {
			return []event.Value{event.Bytes(msg.Payload)}, nil
		}
	}
	return c
}

// Driver pulls messages from a Reader, decodes them into LogEvents, and
// resolves their acknowledgement back through the Reader.
type Driver struct {
	cfg    Config
	reader Reader
}

// New constructs a Driver over reader.
func New(cfg Config, reader Reader) *Driver {
	return &Driver{cfg: cfg.withDefaults(), reader: reader}
}

type ackResult struct {
	id     AckID
	status finalizer.BatchStatus
}

// Run reads from the underlying Reader until ctx is cancelled or the
// reader's stream ends, decoding each message and sending its events on
// out. Run closes out and drains any in-flight finalizer-mode acks
// before returning.
func (d *Driver) Run(ctx context.Context, out chan<- *event.LogEvent) error {
	defer close(out)
	logger := log.WithSource(d.cfg.SourceID)

	completions := make(chan ackResult, 64)
	var wg sync.WaitGroup

	readErr := make(chan error, 1)
	go func() {
		readErr <- d.readLoop(ctx, out, completions, &wg, logger)
	}()

	for {
		select {
		case res := <-completions:
			d.finalize(context.Background(), res.id, res.status, logger)

		case err := <-readErr:
			d.drain(completions, &wg, logger)
			return err

		case <-ctx.Done():
			<-readErr
			d.drain(completions, &wg, logger)
			return ctx.Err()
		}
	}
}

func (d *Driver) readLoop(ctx context.Context, out chan<- *event.LogEvent, completions chan<- ackResult, wg *sync.WaitGroup, logger zerolog.Logger) error {
	for {
		msg, err := d.reader.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug().Msg("source stream ended")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn().Err(err).Msg("source read failed")
			d.publish(events.KindSourceReadError, err.Error())
			continue
		}

		roots, decErr := d.cfg.Decode(msg)
		if decErr != nil {
			logger.Warn().Err(decErr).Msg("failed to decode message")
			d.publish(events.KindParseError, decErr.Error())
			d.finalize(ctx, msg.ID, finalizer.Errored, logger)
			continue
		}
		if len(roots) == 0 {
			d.finalize(ctx, msg.ID, finalizer.Delivered, logger)
			continue
		}

		if !d.cfg.FinalizerMode {
			if !d.sendAll(ctx, out, msg, roots, nil) {
				return nil
			}
			d.finalize(ctx, msg.ID, finalizer.Delivered, logger)
			continue
		}

		notifier, done := finalizer.New()
		if !d.sendAll(ctx, out, msg, roots, notifier) {
			return nil
		}

		wg.Add(1)
		go func(id AckID, done <-chan finalizer.BatchStatus) {
			defer wg.Done()
			status := <-done
			select {
			case completions <- ackResult{id: id, status: status}:
			case <-ctx.Done():
			}
		}(msg.ID, done)
	}
}

// sendAll builds and sends one LogEvent per root. When notifier is
// non-nil each event carries a finalizer referencing it; when sending is
// interrupted by ctx, any event not yet sent has its finalizer released
// immediately so the batch still resolves. Returns false if ctx ended the
// send early.
func (d *Driver) sendAll(ctx context.Context, out chan<- *event.LogEvent, msg *RawMessage, roots []event.Value, notifier *finalizer.BatchNotifier) bool {
	for _, root := range roots {
		ev := d.buildEvent(msg, root)
		var fin *finalizer.EventFinalizer
		if notifier != nil {
			fin = finalizer.NewEventFinalizer(notifier)
			ev.Metadata.AddFinalizer(fin)
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			if fin != nil {
				fin.Release()
			}
			return false
		}
	}
	return true
}

func (d *Driver) buildEvent(msg *RawMessage, root event.Value) *event.LogEvent {
	ev := event.NewLogEvent(root)
	ev.Metadata.Set("source_id", event.String(d.cfg.SourceID))
	if !msg.Timestamp.IsZero() {
		ev.Metadata.Set("source_timestamp", event.Timestamp(msg.Timestamp))
	}
	if len(msg.Headers) > 0 {
		fields := make(map[string]event.Value, len(msg.Headers))
		for k, v := range msg.Headers {
			fields[k] = event.String(v)
		}
		ev.Metadata.Set("headers", event.ObjectFrom(fields))
	}
	for k, v := range msg.Extra {
		ev.Metadata.Set(k, v)
	}
	return ev
}

// finalize resolves one message's terminal status against the Reader:
// Delivered acks; Errored/Rejected nacks only when BrokerRedeliveryEnabled
// is set, otherwise acks anyway to avoid leaving an ack hole behind.
func (d *Driver) finalize(ctx context.Context, id AckID, status finalizer.BatchStatus, logger zerolog.Logger) {
	outcome := "acked"
	var err error
	switch status {
	case finalizer.Delivered:
		err = d.reader.Ack(ctx, id)
	default:
		if d.cfg.BrokerRedeliveryEnabled {
			outcome = "nacked"
			err = d.reader.Nack(ctx, id)
		} else {
			logger.Debug().Str("status", status.String()).Msg("cannot deliver to destination, acking to avoid ack hole")
			err = d.reader.Ack(ctx, id)
		}
		d.publish(events.KindDeliveryFailure, "batch "+status.String()+", resolved as "+outcome)
	}
	if err != nil {
		logger.Warn().Err(err).Str("outcome", outcome).Msg("failed to resolve message acknowledgement")
		outcome += "_error"
	}
	metrics.BatchesAckedTotal.WithLabelValues(d.cfg.SourceID, outcome).Inc()
}

// drain waits for every in-flight finalizer-mode batch spawned by
// readLoop to resolve, finalizing each as it completes.
func (d *Driver) drain(completions chan ackResult, wg *sync.WaitGroup, logger zerolog.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case res := <-completions:
			d.finalize(context.Background(), res.id, res.status, logger)
		case <-done:
			for {
				select {
				case res := <-completions:
					d.finalize(context.Background(), res.id, res.status, logger)
				default:
					return
				}
			}
		}
	}
}

func (d *Driver) publish(kind events.Kind, msg string) {
	if d.cfg.Broker == nil {
		return
	}
	d.cfg.Broker.Publish(&events.Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Severity:  events.SeverityError,
		Component: "source",
		Message:   msg,
		Fields:    map[string]string{"source_id": d.cfg.SourceID},
	})
}
