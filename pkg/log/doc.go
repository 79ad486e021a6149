/*
Package log provides structured logging for Fluxion using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity for production debugging.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("pipeline started")
	log.Warn("state store flush slow")
	log.Error("source read failed")

Component loggers:

	aggLog := log.WithComponent("aggregate")
	aggLog.Info().Str("transform_id", "window-5m").Msg("window flushed")

	srcLog := log.WithSource("pulsar-ingest")
	srcLog.Error().Err(err).Msg("consume failed, retrying")

# Design

  - Global Logger pattern: one package-level zerolog.Logger initialized
    once via Init, used from every package without threading a logger
    through every constructor.
  - Context loggers (WithComponent, WithPipeline, WithTransform,
    WithSource) attach a field once and return a child logger, avoiding
    repeated field specification at every call site.
  - Errors are always logged with .Err(err), never string-concatenated,
    so log aggregation tooling can query on the error field directly.

# Log levels

Debug is for development and troubleshooting only; Info is the default
production level; Warn marks conditions matching the error taxonomy's
"log and continue" rows (persistence I/O failures, source read errors);
Error marks conditions that caused an event to be dropped or a component
to fail a unit of work; Fatal is reserved for unrecoverable internal
invariant violations and exits the process.
*/
package log
