package ddparser

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/events"
	"github.com/cuemby/fluxion/pkg/metrics"
)

// Config parameterizes the parser.
type Config struct {
	ComponentID string

	// VersionField selects the payload version discriminator. Missing or
	// empty resolves to "v2", matching upstream's own default.
	VersionField event.Path

	// MessagePath is the path to the raw Datadog payload object.
	MessagePath event.Path

	// Broker, if set, receives a diagnostic event for each payload this
	// parser fails to decode.
	Broker *events.Broker
}

func (c Config) withDefaults() Config {
	if len(c.VersionField) == 0 {
		c.VersionField = event.ParsePath("message.mezmo_payload_version")
	}
	if len(c.MessagePath) == 0 {
		c.MessagePath = event.ParsePath("message")
	}
	return c
}

// Parser turns one Datadog Agent payload event into its constituent trace
// events.
type Parser struct {
	cfg Config
}

// New constructs a Parser.
func New(cfg Config) *Parser {
	return &Parser{cfg: cfg.withDefaults()}
}

func optString(v event.Value, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	s, isString := v.AsString()
	return s, isString
}

// Parse fans src out into its trace events. Every output shares src's
// metadata via Clone: each holds an independent reference to the same
// underlying finalizers, so acknowledgement fires once the first derived
// trace event is released and every later release on a sibling is a no-op.
// src's own metadata is left untouched; the caller must not also release it.
func (p *Parser) Parse(src *event.LogEvent) ([]*event.LogEvent, error) {
	payload, ok := event.Get(src.Root, p.cfg.MessagePath)
	if !ok || payload.Kind() != event.KindObject {
		metrics.ParseErrorsTotal.WithLabelValues("ddparser", "unknown").Inc()
		p.publish("no object payload at " + p.cfg.MessagePath.String())
		return nil, fmt.Errorf("ddparser: no object payload at %s", p.cfg.MessagePath)
	}

	version, _ := optString(event.Get(src.Root, p.cfg.VersionField))
	if version == "" {
		version = "v2"
	}

	var roots []event.Value
	var err error
	switch version {
	case "v1":
		roots, err = buildV0Traces(payload)
	case "v2":
		roots, err = buildV1Traces(payload)
	default:
		err = fmt.Errorf("unsupported payload version: %s", version)
	}
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("ddparser", version).Inc()
		p.publish(err.Error())
		return nil, err
	}

	out := make([]*event.LogEvent, len(roots))
	for i, root := range roots {
		le := event.NewLogEvent(event.ObjectFrom(map[string]event.Value{"message": root}))
		le.Metadata = src.Metadata.Clone()
		out[i] = le
	}
	return out, nil
}

// publish forwards a diagnostic event to p.cfg.Broker, if one is
// configured. No-op otherwise so Config.Broker stays optional.
func (p *Parser) publish(msg string) {
	if p.cfg.Broker == nil {
		return
	}
	p.cfg.Broker.Publish(&events.Event{
		ID:        uuid.New().String(),
		Kind:      events.KindParseError,
		Severity:  events.SeverityWarn,
		Component: "ddparser",
		Message:   msg,
		Fields:    map[string]string{"component_id": p.cfg.ComponentID},
	})
}
