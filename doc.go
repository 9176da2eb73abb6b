// Package authgate provides login rate limiting, lock auditing, and
// refresh-token exchange for an external user directory.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, IPLockInfo, MetricsSnapshot, etc.). All
// internal coordination (flow orchestration, counter windows, lock
// persistence) lives under internal/ and is never exported.
//
// # Failure policy
//
// The Redis counters are the primary gate: counter reads fail open, counter
// writes fail closed. The Postgres lock audit store is observational and
// never blocks an authentication decision, with one exception: account
// cooldowns are enforced from its rows. Session probes fail closed.
//
// # What this package must NOT do
//
//   - Expose Redis clients or SQL handles in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports authgate (no import cycles).
package authgate
