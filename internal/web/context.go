package web

import (
	"context"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "userID"

// anonymousUser scopes requests that carry no identity header. All data
// access is partitioned per user, so unauthenticated clients share one
// bucket.
const anonymousUser = "anonymous"

// userScoping resolves the calling user from the X-User-ID header and
// stores it on the request context.
func userScoping(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = anonymousUser
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the scoped user for the request.
func userID(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return anonymousUser
}
