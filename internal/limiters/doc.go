// Package limiters holds the rate-limit policies layered on the
// internal/rate counter primitives. The login limiter decides
// allowed/limited over a fixed window; it never records audit state
// itself (that belongs to internal/lockaudit via the login flow).
package limiters
