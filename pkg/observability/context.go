package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDCtxKey contextKey = "request_id"
	userIDCtxKey    contextKey = "user_id"
)

// Attribute keys used in logs.
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

// WithRequestID adds a request id to ctx, generating one when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDCtxKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// WithUserID records the authenticated user for log lines.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext returns the authenticated user id or "".
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(userIDCtxKey).(string)
	return id
}
