package authgate

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method runs before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials covers unknown users, inactive users, and wrong
	// passwords. Callers get no finer distinction.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned when the per-IP window, the account
	// cooldown, or a failed counter write denies a login.
	ErrRateLimited = errors.New("rate limited")

	// ErrTokenMissing is returned for an empty or structurally absent token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenSignature is returned when token verification fails.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned when a token's exp has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongType is returned when a token carries the wrong type
	// claim for the operation.
	ErrTokenWrongType = errors.New("wrong token type")
	// ErrStaleSession is returned when a refresh token's session no longer
	// exists.
	ErrStaleSession = errors.New("session no longer exists")

	// ErrLockNotFound is returned by admin lookups of absent lock records.
	ErrLockNotFound = errors.New("lock record not found")
	// ErrBackendUnavailable is returned when a required backend could not
	// serve the operation.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
