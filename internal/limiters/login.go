package limiters

import (
	"context"
	"time"

	"github.com/Edraak/authgate/internal/rate"
)

// LoginConfig holds the login rate limit knobs. MaxRequests defaults high
// because whole universities share NAT'd egress IPs; the limit exists to
// stop scripted abuse, not classrooms.
type LoginConfig struct {
	WindowMinutes int
	MaxRequests   int
}

// LoginLimiter translates windowed counter sums into allowed/limited
// decisions for login attempts.
type LoginLimiter struct {
	store  *rate.Store
	config LoginConfig
	now    func() time.Time
}

// NewLoginLimiter creates a login limiter over the shared counter store.
// The clock is injectable for tests; nil means time.Now.
func NewLoginLimiter(store *rate.Store, cfg LoginConfig, now func() time.Time) *LoginLimiter {
	if cfg.WindowMinutes < 1 {
		cfg.WindowMinutes = 1
	}
	if now == nil {
		now = time.Now
	}
	return &LoginLimiter{store: store, config: cfg, now: now}
}

// Check reports whether the client is over budget. Each scope is budgeted
// independently: the client is limited when any scope's windowed sum has
// reached MaxRequests, so a single failure counts once toward the
// decision, not once per scope. Never increments. Returns
// [rate.ErrRateLimited] when a budget is exhausted, or
// [rate.ErrRedisUnavailable] when the backend cannot be read (the caller
// fails open on that).
func (l *LoginLimiter) Check(ctx context.Context, ck rate.ClientKey) error {
	for _, scope := range rate.ScopeWindows(ck, l.now(), l.config.WindowMinutes) {
		total, err := l.store.Sum(ctx, scope)
		if err != nil {
			return err
		}
		if total >= int64(l.config.MaxRequests) {
			return rate.ErrRateLimited
		}
	}
	return nil
}

// RecordFailure increments every scope key for the current minute bucket
// with TTL = the window length. Backend errors propagate; the write path
// fails closed at the caller.
func (l *LoginLimiter) RecordFailure(ctx context.Context, ck rate.ClientKey) error {
	ttl := time.Duration(l.config.WindowMinutes) * time.Minute
	for _, key := range rate.CurrentKeys(ck, l.now()) {
		if _, err := l.store.Incr(ctx, key, ttl); err != nil {
			return err
		}
	}
	return nil
}

// KeysFor returns every counter key a Check would read for the client at
// this instant. It is pure; the admin reset path uses it to delete the
// counters belonging to an IP.
func (l *LoginLimiter) KeysFor(ck rate.ClientKey) []string {
	return rate.WindowKeys(ck, l.now(), l.config.WindowMinutes)
}

// ResetIP deletes every live counter key for the IP: the IP-scope window
// keys plus every account-scope key the IP's traffic produced, whatever
// username it carried. Counter deletion must happen before the audit row
// is removed so no residual limit survives a cleared record.
func (l *LoginLimiter) ResetIP(ctx context.Context, ip string) error {
	if err := l.store.DeleteMany(ctx, l.KeysFor(rate.ClientKey{IP: ip})); err != nil {
		return err
	}
	return l.store.DeleteByPattern(ctx, rate.AccountScopePattern(ip))
}
