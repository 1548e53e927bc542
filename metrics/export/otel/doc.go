// Package otel bridges the engine's internal counters into OpenTelemetry
// instruments. One registered callback reads a metrics snapshot per
// collection cycle; the caller owns the MeterProvider.
package otel
