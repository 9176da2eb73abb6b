package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/Edraak/authgate/internal/lockaudit"
	"github.com/Edraak/authgate/internal/rate"
)

// ListIPLocks returns the recorded rate-limited IPs, most recently updated
// first.
func (e *Engine) ListIPLocks(ctx context.Context, filter LockFilter) ([]IPLockInfo, error) {
	if e == nil || e.locks == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.locks.ListIPLocks(ctx, lockaudit.ListFilter{
		IP:       filter.IP,
		Username: filter.Username,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	out := make([]IPLockInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, IPLockInfo{
			IPAddress:       rec.IPAddress,
			LockoutCount:    rec.LockoutCount,
			LatestUsername:  rec.LatestUsername,
			LockoutDuration: rec.LockoutDuration(),
			CreatedAt:       rec.CreatedAt,
			UpdatedAt:       rec.UpdatedAt,
		})
	}
	return out, nil
}

// ResetIPLock removes the IP's lock record and every counter key its
// traffic could have produced. Counters are deleted first so no residual
// limit survives a deleted record; if the counter reset fails, the record
// stays.
func (e *Engine) ResetIPLock(ctx context.Context, ip string) error {
	if e == nil || e.locks == nil || e.limiter == nil {
		return ErrEngineNotReady
	}

	canonical := rate.CanonicalIP(ip)

	rec, err := e.locks.GetIPLock(ctx, canonical)
	if err != nil && !errors.Is(err, lockaudit.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.limiter.ResetIP(ctx, canonical); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := e.locks.DeleteIPLock(ctx, canonical); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricAdminIPReset)
	e.emitAudit(ctx, EventAdminIPReset, true, rec.LatestUsername, "", canonical, nil, nil)
	return nil
}

// ListAccountLocks returns per-account failure state, most failures first.
func (e *Engine) ListAccountLocks(ctx context.Context, filter LockFilter) ([]AccountLockInfo, error) {
	if e == nil || e.locks == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.locks.ListAccountLocks(ctx, lockaudit.ListFilter{
		Username: filter.Username,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	now := e.now()
	out := make([]AccountLockInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, AccountLockInfo{
			Username:     rec.Username,
			FailureCount: rec.FailureCount,
			LockoutUntil: rec.LockoutUntil,
			Locked:       rec.LockedAt(now),
		})
	}
	return out, nil
}

// ClearAccountLock zeroes an account's failure count and cooldown.
func (e *Engine) ClearAccountLock(ctx context.Context, username string) error {
	if e == nil || e.locks == nil {
		return ErrEngineNotReady
	}

	if err := e.locks.ClearAccountLock(ctx, username); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricAdminAccountClear)
	e.emitAudit(ctx, EventAdminAccountClear, true, username, "", "", nil, nil)
	return nil
}
