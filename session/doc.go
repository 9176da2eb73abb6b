// Package session provides Redis-backed session persistence for the login
// and token-exchange paths.
//
// A session is a small JSON record keyed by an opaque random key with a
// fixed TTL. The exchange flow only ever asks whether a key still exists;
// probes never create or touch a session, and a Redis failure reads as
// absent so a store outage cannot resurrect a revoked token.
//
// # What this package must NOT do
//
//   - Import authgate or token (no upward imports).
//   - Interpret or verify JWTs.
//   - Refresh a session's TTL on probe.
package session
