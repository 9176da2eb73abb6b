package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/Edraak/authgate/internal/flows"
	"github.com/Edraak/authgate/token"
)

// ExchangeAccessToken verifies a signed request envelope carrying a refresh
// token and mints a fresh access token. callerSessionKey is the
// authenticated caller's own session key, empty for anonymous callers; when
// the refresh token's session is gone and the caller is authenticated, the
// caller is logged out as a side effect before ErrStaleSession is returned.
//
// Refresh tokens are reusable: a successful exchange does not consume or
// rotate them.
func (e *Engine) ExchangeAccessToken(ctx context.Context, requestAccessToken, callerSessionKey string) (string, error) {
	if e == nil || e.tokens == nil || e.sessions == nil {
		return "", ErrEngineNotReady
	}

	result := flows.RunExchange(ctx, requestAccessToken, callerSessionKey, e.exchangeDeps())

	switch result.Failure {
	case flows.ExchangeFailureNone:
		return result.AccessToken, nil
	case flows.ExchangeFailureMissingInput:
		return "", ErrTokenMissing
	case flows.ExchangeFailureExpired:
		return "", ErrTokenExpired
	case flows.ExchangeFailureWrongType:
		return "", ErrTokenWrongType
	case flows.ExchangeFailureStaleSession:
		return "", ErrStaleSession
	case flows.ExchangeFailureBadSignature:
		return "", ErrTokenSignature
	default:
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, result.Err)
	}
}

// VerifyAccess checks a bearer access token and returns the identity and
// session key it is bound to. It does not touch the session store.
func (e *Engine) VerifyAccess(raw string) (User, string, error) {
	if e == nil || e.tokens == nil {
		return User{}, "", ErrEngineNotReady
	}
	claims, err := e.tokens.ParseAccess(raw)
	if err != nil {
		return User{}, "", mapTokenError(err)
	}
	return User{Username: claims.Username, Email: claims.Email}, claims.SessionKey, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrMissingInput):
		return ErrTokenMissing
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongType):
		return ErrTokenWrongType
	default:
		return ErrTokenSignature
	}
}

// WrapEnvelope signs the short-lived request envelope clients submit to the
// exchange endpoint.
func (e *Engine) WrapEnvelope(refreshToken string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}
	return e.tokens.WrapEnvelope(refreshToken)
}

// Logout destroys the session. Refresh tokens bound to it fail all future
// exchanges.
func (e *Engine) Logout(ctx context.Context, sessionKey string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if err := e.sessions.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, EventLogout, true, "", sessionKey, clientIPFromContext(ctx), nil, nil)
	return nil
}

func (e *Engine) exchangeDeps() flows.ExchangeDeps {
	return flows.ExchangeDeps{
		ParseEnvelope: e.tokens.ParseEnvelope,
		ParseRefresh: func(raw string) (flows.ExchangeClaims, error) {
			claims, err := e.tokens.ParseRefresh(raw)
			if err != nil {
				return flows.ExchangeClaims{}, err
			}
			return flows.ExchangeClaims{
				Username:   claims.Username,
				Email:      claims.Email,
				SessionKey: claims.SessionKey,
			}, nil
		},
		ClassifyTokenError: func(err error) flows.ExchangeFailureKind {
			switch {
			case errors.Is(err, token.ErrMissingInput):
				return flows.ExchangeFailureMissingInput
			case errors.Is(err, token.ErrExpired):
				return flows.ExchangeFailureExpired
			case errors.Is(err, token.ErrWrongType):
				return flows.ExchangeFailureWrongType
			default:
				return flows.ExchangeFailureBadSignature
			}
		},

		SessionExists: e.sessions.Exists,
		MintAccess: func(claims flows.ExchangeClaims) (string, error) {
			return e.tokens.IssueAccessFrom(token.Claims{
				Username:   claims.Username,
				Email:      claims.Email,
				SessionKey: claims.SessionKey,
			})
		},
		Logout: e.sessions.Delete,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: func(ctx context.Context, event string, success bool, username, ip string, err error, meta func() map[string]string) {
			e.emitAudit(ctx, event, success, username, "", ip, err, meta)
		},
		Warn: e.warn,

		Metrics: flows.ExchangeMetrics{
			Success:      int(MetricExchangeSuccess),
			Failure:      int(MetricExchangeFailure),
			StaleSession: int(MetricExchangeStaleSession),
		},
		Events: flows.ExchangeEvents{
			Success:      EventExchangeSuccess,
			Failure:      EventExchangeFailure,
			StaleSession: EventExchangeStale,
		},
	}
}
