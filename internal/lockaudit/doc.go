// Package lockaudit persists the durable lock records behind the rate
// limiter: one row per rate-limited IP and one row per account with failed
// logins. The rows are observational (enforcement always reads the
// counters) except for account cooldowns, where lockout_until is the
// source of truth.
//
// Two implementations exist: Postgres for production and an in-memory
// store for tests and single-node development.
//
// # What this package must NOT do
//
//   - Touch the Redis counters (reset coordination happens in the engine).
//   - Block an authentication decision on database availability.
package lockaudit
