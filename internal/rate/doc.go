// Package rate provides the Redis counter primitives behind login rate
// limiting: scope-key derivation, fixed-window increments, windowed reads,
// and batch resets.
//
// # Window semantics
//
// Counter keys embed a UTC minute bucket, so a window of W minutes is the
// sum of W per-minute keys. Increments create the key with TTL = W and
// never refresh it (fixed window). Key prefixes:
//   - rlip: failed logins per IP
//   - rlacct: failed logins per (IP, account)
//
// # What this package must NOT do
//
//   - Decide whether a client is over budget (that lives in internal/limiters).
//   - Be imported outside the authgate module.
package rate
