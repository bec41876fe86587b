package httpx

import (
	"context"
	"net/http"

	"bookstore/internal/user"
)

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "requestID"
)

// UserFrom returns the authenticated caller, or nil for anonymous requests.
func UserFrom(r *http.Request) *user.User {
	if v, ok := r.Context().Value(userKey).(*user.User); ok {
		return v
	}
	return nil
}

// UserIDFrom retrieves the caller id from the request context.
func UserIDFrom(r *http.Request) string {
	if u := UserFrom(r); u != nil {
		return u.ID
	}
	return ""
}

// ContextWithUser returns a new context carrying the caller.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// RequestIDFrom retrieves the request id from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithRequestID returns a new context with the request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
