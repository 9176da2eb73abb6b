package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Edraak/authgate/internal/flows"
	"github.com/Edraak/authgate/internal/lockaudit"
	"github.com/Edraak/authgate/internal/rate"
	"github.com/Edraak/authgate/session"
	"github.com/Edraak/authgate/token"
)

// Login authenticates a username/password pair for the client IP attached
// to ctx via [WithClientIP]. On success it creates a session and returns a
// refresh token bound to it.
//
// Failures map to ErrRateLimited (window tripped, account cooldown active,
// or counter write failed) and ErrInvalidCredentials; everything else is a
// backend error.
func (e *Engine) Login(ctx context.Context, username, plaintext string) (*LoginResult, error) {
	if e == nil || e.limiter == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	username = strings.ToLower(strings.TrimSpace(username))
	clientKey := rate.NewClientKey(clientIPFromContext(ctx), username)

	result := flows.RunLogin(ctx, username, plaintext, e.loginDeps(clientKey))

	switch result.Failure {
	case flows.LoginFailureNone:
		access, err := e.tokens.IssueAccessFrom(token.Claims{
			Username:   result.User.Username,
			Email:      result.User.Email,
			SessionKey: result.SessionKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return &LoginResult{
			User:         User{Username: result.User.Username, Email: result.User.Email},
			SessionKey:   result.SessionKey,
			RefreshToken: result.RefreshToken,
			AccessToken:  access,
		}, nil
	case flows.LoginFailureRateLimited, flows.LoginFailureAccountLocked, flows.LoginFailureCounterWrite:
		return nil, ErrRateLimited
	case flows.LoginFailureBadCredentials:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, result.Err)
	}
}

func (e *Engine) loginDeps(clientKey rate.ClientKey) flows.LoginDeps {
	return flows.LoginDeps{
		Now:                 e.now,
		ClientIPFromContext: func(context.Context) string { return clientKey.IP },

		CheckRate: func(ctx context.Context) error {
			return e.limiter.Check(ctx, clientKey)
		},
		IsRateLimited: func(err error) bool {
			return errors.Is(err, rate.ErrRateLimited)
		},
		RecordRateFailure: func(ctx context.Context) error {
			return e.limiter.RecordFailure(ctx, clientKey)
		},

		UpsertIPLock: func(ctx context.Context, username string) error {
			return e.locks.UpsertIPLock(ctx, clientKey.IP, username)
		},
		AccountLockedUntil: func(ctx context.Context, username string) (*time.Time, error) {
			rec, err := e.locks.GetAccountLock(ctx, username)
			if errors.Is(err, lockaudit.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return rec.LockoutUntil, nil
		},
		RecordAccountFailure: func(ctx context.Context, username string) error {
			_, err := e.locks.RecordAccountFailure(ctx, username,
				e.config.AccountLock.FailureThreshold,
				e.config.AccountLock.Cooldown,
				e.now())
			return err
		},
		ClearAccountLock: func(ctx context.Context, username string) error {
			return e.locks.ClearAccountLock(ctx, username)
		},

		GetUser: func(ctx context.Context, username string) (flows.LoginUser, error) {
			rec, err := e.users.GetByUsername(ctx, username)
			if err != nil {
				return flows.LoginUser{}, err
			}
			return flows.LoginUser{
				Username:     rec.Username,
				Email:        rec.Email,
				PasswordHash: rec.PasswordHash,
				IsActive:     rec.IsActive,
			}, nil
		},
		VerifyPassword: func(hash, plaintext string) (bool, error) {
			return e.hasher.Verify(plaintext, hash)
		},
		CreateSession: func(ctx context.Context, user flows.LoginUser) (string, error) {
			return e.sessions.Create(ctx, session.Session{
				Username: user.Username,
				Email:    user.Email,
				ClientIP: clientKey.IP,
			})
		},
		IssueRefresh: func(user flows.LoginUser, sessionKey string) (string, error) {
			return e.tokens.IssueRefresh(user.Username, user.Email, sessionKey)
		},

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, event string, success bool, username, ip string, err error, meta func() map[string]string) {
			e.emitAudit(ctx, event, success, username, "", ip, err, meta)
		},
		Warn: e.warn,

		Metrics: flows.LoginMetrics{
			Success:        int(MetricLoginSuccess),
			Failure:        int(MetricLoginFailure),
			RateLimited:    int(MetricLoginRateLimited),
			AccountLocked:  int(MetricAccountLocked),
			SessionCreated: int(MetricSessionCreated),
		},
		Events: flows.LoginEvents{
			Success:       EventLoginSuccess,
			Failure:       EventLoginFailure,
			RateLimited:   EventLoginRateLimited,
			AccountLocked: EventAccountLocked,
		},
	}
}
