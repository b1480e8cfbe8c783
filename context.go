package thunderauth

import "context"

type requestIDContextKey struct{}

// WithRequestID pins the X-Request-ID sent by every attempt of calls made with
// ctx, including a retry after refresh. Without it each attempt gets a fresh id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDContextKey{}).(string)
	return v
}
