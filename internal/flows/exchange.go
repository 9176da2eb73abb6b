package flows

import "context"

// ExchangeFailureKind classifies exchange flow failures for root-level
// mapping. Each kind maps to a distinct user-visible message.
type ExchangeFailureKind int

const (
	ExchangeFailureNone ExchangeFailureKind = iota
	ExchangeFailureMissingInput
	ExchangeFailureBadSignature
	ExchangeFailureExpired
	ExchangeFailureWrongType
	ExchangeFailureStaleSession
	ExchangeFailureInternal
)

// ExchangeClaims is the flow-local view of a verified refresh token.
type ExchangeClaims struct {
	Username   string
	Email      string
	SessionKey string
}

// ExchangeResult carries either the minted access token or failure
// metadata. LoggedOut records whether the stale-session side effect fired.
type ExchangeResult struct {
	Failure     ExchangeFailureKind
	Err         error
	Claims      ExchangeClaims
	AccessToken string
	LoggedOut   bool
}

// ExchangeMetrics carries metric IDs used by the exchange flow.
type ExchangeMetrics struct {
	Success      int
	Failure      int
	StaleSession int
}

// ExchangeEvents carries audit event names used by the exchange flow.
type ExchangeEvents struct {
	Success      string
	Failure      string
	StaleSession string
}

// ExchangeDeps captures exchange flow dependencies.
type ExchangeDeps struct {
	// ParseEnvelope verifies the signed outer envelope and returns the
	// inner refresh token. ParseRefresh verifies the inner token and
	// requires the refresh type claim. Both report failures via
	// ClassifyTokenError.
	ParseEnvelope      func(string) (string, error)
	ParseRefresh       func(string) (ExchangeClaims, error)
	ClassifyTokenError func(error) ExchangeFailureKind

	// SessionExists is a pure liveness probe; store failures read as
	// absent.
	SessionExists func(ctx context.Context, key string) bool
	MintAccess    func(ExchangeClaims) (string, error)
	// Logout destroys the caller's own session when a stale refresh token
	// is presented by an authenticated caller.
	Logout func(ctx context.Context, sessionKey string) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, username, ip string, err error, meta func() map[string]string)
	Warn      func(string, ...any)

	Metrics ExchangeMetrics
	Events  ExchangeEvents
}

// RunExchange verifies the outer envelope, then the inner refresh token,
// then the session binding, and finally mints an access token. callerSession
// is the authenticated caller's own session key, empty for anonymous
// callers; it is only touched on the stale-session path.
func RunExchange(ctx context.Context, outer, callerSession string, deps ExchangeDeps) ExchangeResult {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	inner, err := deps.ParseEnvelope(outer)
	if err != nil {
		kind := deps.ClassifyTokenError(err)
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", "", err, nil)
		return ExchangeResult{Failure: kind, Err: err}
	}

	claims, err := deps.ParseRefresh(inner)
	if err != nil {
		kind := deps.ClassifyTokenError(err)
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, claims.Username, "", err, nil)
		return ExchangeResult{Failure: kind, Err: err}
	}

	if !deps.SessionExists(ctx, claims.SessionKey) {
		result := ExchangeResult{Failure: ExchangeFailureStaleSession, Claims: claims}
		if callerSession != "" {
			if err := deps.Logout(ctx, callerSession); err != nil {
				deps.Warn("stale-session logout failed", "error", err)
			} else {
				result.LoggedOut = true
			}
		}
		deps.MetricInc(deps.Metrics.StaleSession)
		deps.EmitAudit(ctx, deps.Events.StaleSession, false, claims.Username, "", nil, func() map[string]string {
			return map[string]string{"logged_out": boolString(result.LoggedOut)}
		})
		return result
	}

	access, err := deps.MintAccess(claims)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return ExchangeResult{Failure: ExchangeFailureInternal, Err: err, Claims: claims}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, claims.Username, "", nil, nil)

	return ExchangeResult{Claims: claims, AccessToken: access}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
