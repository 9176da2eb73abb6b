// Package internaldefs exposes stable metric name definitions shared by
// exporter implementations.
//
// Counter definitions live here so that every exporter binding publishes
// identical metric names. Changes to definitions in this package affect all
// exporters simultaneously.
//
// # What this package must NOT do
//
//   - Import exporter packages.
//   - Perform I/O.
package internaldefs
