package authgate

import (
	"errors"
	"time"
)

// Config is the immutable engine configuration. Construct it once, pass it
// to [Builder.WithConfig], and never mutate it afterwards.
type Config struct {
	RateLimit   RateLimitConfig
	AccountLock AccountLockConfig
	Token       TokenConfig
	Session     SessionConfig
	Password    PasswordConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

// RateLimitConfig bounds failed logins per client over a sliding window of
// fixed one-minute buckets.
type RateLimitConfig struct {
	WindowMinutes int
	MaxRequests   int
}

// AccountLockConfig controls the per-account cooldown. FailureThreshold
// failures trip a lock lasting Cooldown.
type AccountLockConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// TokenConfig holds the shared signing secret and token lifetimes.
type TokenConfig struct {
	SigningSecret []byte
	RefreshTTL    time.Duration
	AccessTTL     time.Duration
	EnvelopeTTL   time.Duration
	Leeway        time.Duration
}

// SessionConfig controls session persistence.
type SessionConfig struct {
	TTL time.Duration
}

// PasswordConfig tunes Argon2id verification cost. Zero values take the
// package defaults.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns production-leaning defaults. The signing secret has
// no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		// MaxRequests is deliberately permissive: many legitimate users can
		// share one NAT'd IP.
		RateLimit: RateLimitConfig{
			WindowMinutes: 5,
			MaxRequests:   10000,
		},
		AccountLock: AccountLockConfig{
			FailureThreshold: 5,
			Cooldown:         15 * time.Minute,
		},
		Token: TokenConfig{
			RefreshTTL:  7 * 24 * time.Hour,
			AccessTTL:   5 * time.Minute,
			EnvelopeTTL: time.Minute,
		},
		Session: SessionConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.RateLimit.WindowMinutes <= 0 {
		return errors.New("RateLimit.WindowMinutes must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("RateLimit.MaxRequests must be positive")
	}
	if c.AccountLock.FailureThreshold < 0 {
		return errors.New("AccountLock.FailureThreshold must not be negative")
	}
	if c.AccountLock.FailureThreshold > 0 && c.AccountLock.Cooldown <= 0 {
		return errors.New("AccountLock.Cooldown must be positive when the threshold is set")
	}
	if len(c.Token.SigningSecret) == 0 {
		return errors.New("Token.SigningSecret is required")
	}
	if c.Token.RefreshTTL <= 0 || c.Token.AccessTTL <= 0 {
		return errors.New("Token TTLs must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session.TTL must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = append([]byte(nil), cfg.Token.SigningSecret...)
	return out
}
