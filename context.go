package authgate

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's remote address to ctx. The Engine uses
// it for per-IP rate limiting and audit logging; requests without it fall
// back to a sentinel counter key so such traffic is still bounded.
func WithClientIP(ctx context.Context, remoteAddr string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, remoteAddr)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
