package flows

import (
	"context"
	"time"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	// LoginFailureRateLimited means the per-IP window tripped.
	LoginFailureRateLimited
	// LoginFailureAccountLocked means the account is inside its cooldown.
	LoginFailureAccountLocked
	// LoginFailureCounterWrite means the failure counter could not be
	// written; the request reads as limited so an outage cannot grant
	// unbounded attempts.
	LoginFailureCounterWrite
	// LoginFailureBadCredentials covers unknown users, inactive users, and
	// wrong passwords.
	LoginFailureBadCredentials
	// LoginFailureInternal means a session or token dependency failed after
	// the credentials were accepted.
	LoginFailureInternal
)

// LoginUser is the flow-local account model.
type LoginUser struct {
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
}

// LoginResult carries either the issued session or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	User         LoginUser
	SessionKey   string
	RefreshToken string
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	Success        int
	Failure        int
	RateLimited    int
	AccountLocked  int
	SessionCreated int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success       string
	Failure       string
	RateLimited   string
	AccountLocked string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	// CheckRate reports whether the client is already over budget. A
	// rate-limited error (per IsRateLimited) denies the request; any other
	// error means the counter backend is unreachable and the read fails
	// open.
	CheckRate     func(context.Context) error
	IsRateLimited func(error) bool
	// RecordRateFailure increments every scope counter. Errors fail closed.
	RecordRateFailure func(context.Context) error

	UpsertIPLock         func(ctx context.Context, username string) error
	AccountLockedUntil   func(ctx context.Context, username string) (*time.Time, error)
	RecordAccountFailure func(ctx context.Context, username string) error
	ClearAccountLock     func(ctx context.Context, username string) error

	GetUser        func(ctx context.Context, username string) (LoginUser, error)
	VerifyPassword func(hash, plaintext string) (bool, error)
	CreateSession  func(ctx context.Context, user LoginUser) (string, error)
	IssueRefresh   func(user LoginUser, sessionKey string) (string, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, username, ip string, err error, meta func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
}

// RunLogin executes the login decision. Ordering is fixed: the window check
// runs first, then the account cooldown, then credentials; on a credential
// failure the counter increment precedes every audit write so a crash
// between them leaves the counter authoritative.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}

	ip := deps.ClientIPFromContext(ctx)

	if err := deps.CheckRate(ctx); err != nil {
		if deps.IsRateLimited(err) {
			if upsertErr := deps.UpsertIPLock(ctx, username); upsertErr != nil {
				deps.Warn("ip lock upsert failed", "ip", ip, "error", upsertErr)
			}
			deps.MetricInc(deps.Metrics.RateLimited)
			deps.EmitAudit(ctx, deps.Events.RateLimited, false, username, ip, err, nil)
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
		// Counter reads fail open so a store outage does not become a
		// global lockout.
		deps.Warn("rate check unavailable, failing open", "ip", ip, "error", err)
	}

	if username != "" {
		until, err := deps.AccountLockedUntil(ctx, username)
		if err != nil {
			deps.Warn("account lock lookup failed", "username", username, "error", err)
		} else if until != nil && until.After(deps.Now()) {
			deps.MetricInc(deps.Metrics.AccountLocked)
			deps.EmitAudit(ctx, deps.Events.AccountLocked, false, username, ip, nil, func() map[string]string {
				return map[string]string{"lockout_until": until.UTC().Format(time.RFC3339)}
			})
			return LoginResult{Failure: LoginFailureAccountLocked}
		}
	}

	user, lookupErr := deps.GetUser(ctx, username)
	verified := false
	if lookupErr == nil && user.IsActive && password != "" {
		ok, err := deps.VerifyPassword(user.PasswordHash, password)
		if err != nil {
			deps.Warn("password verification failed", "username", username, "error", err)
		}
		verified = ok && err == nil
	}

	if !verified {
		if err := deps.RecordRateFailure(ctx); err != nil {
			deps.MetricInc(deps.Metrics.RateLimited)
			deps.EmitAudit(ctx, deps.Events.RateLimited, false, username, ip, err, nil)
			return LoginResult{Failure: LoginFailureCounterWrite, Err: err}
		}
		if lookupErr == nil && username != "" {
			if err := deps.RecordAccountFailure(ctx, username); err != nil {
				deps.Warn("account failure record failed", "username", username, "error", err)
			}
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, username, ip, nil, nil)
		return LoginResult{Failure: LoginFailureBadCredentials}
	}

	if err := deps.ClearAccountLock(ctx, username); err != nil {
		deps.Warn("account lock clear failed", "username", username, "error", err)
	}

	sessionKey, err := deps.CreateSession(ctx, user)
	if err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: err}
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	refreshToken, err := deps.IssueRefresh(user, sessionKey)
	if err != nil {
		return LoginResult{Failure: LoginFailureInternal, Err: err}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.Username, ip, nil, nil)

	return LoginResult{
		User:         user,
		SessionKey:   sessionKey,
		RefreshToken: refreshToken,
	}
}
