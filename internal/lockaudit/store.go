package lockaudit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for lookups of absent lock records.
	ErrNotFound = errors.New("lock record not found")
	// ErrStoreUnavailable reports that the audit database is unreachable.
	ErrStoreUnavailable = errors.New("lock audit store unavailable")
)

// IPLock is the durable record of an IP that tripped the login rate
// limit. LockoutCount only ever increases until an operator deletes the
// row. LatestUsername is informational and may be empty.
type IPLock struct {
	IPAddress      string
	LockoutCount   int
	LatestUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockoutDuration renders the span between the first and the most recent
// over-limit event for operator listings.
func (l IPLock) LockoutDuration() string {
	return humanizeDelta(l.UpdatedAt.Sub(l.CreatedAt))
}

// AccountLock tracks failed logins for one account. When FailureCount
// crosses the configured threshold it resets to zero and LockoutUntil is
// set; while LockoutUntil is in the future the account is locked
// regardless of counter state.
type AccountLock struct {
	Username     string
	FailureCount int
	LockoutUntil *time.Time
}

// LockedAt reports whether the account is locked at the given instant.
func (l AccountLock) LockedAt(now time.Time) bool {
	return l.LockoutUntil != nil && l.LockoutUntil.After(now)
}

// ListFilter narrows and pages the admin listings. Zero values mean no
// filtering; Page is 1-based.
type ListFilter struct {
	IP       string
	Username string
	Page     int
	PerPage  int
}

func (f ListFilter) limitOffset() (uint64, uint64) {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	return uint64(perPage), uint64(perPage) * uint64(page-1)
}

// Store is the durable lock audit contract consumed by the engine.
type Store interface {
	// UpsertIPLock inserts the row with lockout_count=1 or atomically
	// increments it, updating latest_username and updated_at.
	UpsertIPLock(ctx context.Context, ip, latestUsername string) error
	// GetIPLock returns the record for an IP, or ErrNotFound.
	GetIPLock(ctx context.Context, ip string) (IPLock, error)
	// ListIPLocks returns records ordered by updated_at descending.
	ListIPLocks(ctx context.Context, f ListFilter) ([]IPLock, error)
	// DeleteIPLock removes the record. Deleting an absent IP is not an
	// error; the caller coordinates the counter reset.
	DeleteIPLock(ctx context.Context, ip string) error

	// RecordAccountFailure increments the account's failure counter. When
	// the counter reaches threshold, lockout_until is set to now+cooldown
	// and the counter resets to zero. The resulting state is returned.
	RecordAccountFailure(ctx context.Context, username string, threshold int, cooldown time.Duration, now time.Time) (AccountLock, error)
	// GetAccountLock returns the record for a username, or ErrNotFound.
	GetAccountLock(ctx context.Context, username string) (AccountLock, error)
	// ListAccountLocks returns account records, most failures first.
	ListAccountLocks(ctx context.Context, f ListFilter) ([]AccountLock, error)
	// ClearAccountLock zeroes failure_count and lockout_until.
	ClearAccountLock(ctx context.Context, username string) error
}

// humanizeDelta renders a duration the way operators read it: the two
// largest non-zero units, "3 days, 4 hours" style.
func humanizeDelta(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	seconds := int64(d / time.Second)
	units := []struct {
		name string
		size int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}

	parts := make([]string, 0, 2)
	for _, u := range units {
		if len(parts) == 2 {
			break
		}
		n := seconds / u.size
		seconds %= u.size
		if n == 0 {
			continue
		}
		label := u.name
		if n != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
