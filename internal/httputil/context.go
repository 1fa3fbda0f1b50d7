package httputil

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	tokenKey  contextKey = "bearerToken"
)

// WithUserID adds userID to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithBearerToken keeps the caller's raw token so in-process clients can forward it
// to other routes of this service.
func WithBearerToken(r *http.Request, token string) *http.Request {
	ctx := context.WithValue(r.Context(), tokenKey, token)
	return r.WithContext(ctx)
}

// GetBearerToken returns the caller's raw bearer token, or "".
func GetBearerToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey).(string)
	return token
}
