package rate

import "errors"

var (
	// ErrRateLimited reports that a counter budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports that the counter backend is unreachable.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
