// Package otel provides OpenTelemetry metric exporter bindings for the
// engine's counters.
//
// [NewExporter] registers an Int64ObservableCounter per engine metric. A
// single callback reads the engine's metrics snapshot on each collection
// cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
