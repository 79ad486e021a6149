/*
Package fluxconfig centralizes the handful of deployment knobs Fluxion
reads straight from the process environment rather than from a pipeline
definition file: byte thresholds the reducing transform falls back to
when a config omits them, the pod identity used to namespace persisted
state, and the topic-list refresh cadence for the Pulsar source.

These are operational knobs, not pipeline shape, so they live outside
the pipeline graph that cmd/fluxion builds in Go with pkg/topology, and
are read when the components that use them are constructed.
*/
package fluxconfig
