package answer

import "context"

type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID tags ctx with the id used to correlate log lines of a query.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id of ctx or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
