package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const identityKey contextKey = "identity"

// SessionValidator resolves a session token to the account that owns it.
// *services.SessionService is the production implementation.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (primitive.ObjectID, bool, error)
}

// SessionToken extracts the session token from the Authorization header,
// the session cookie, or (for browser WebSocket clients) the token query
// parameter, in that order.
func SessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// SessionCookieName is the cookie the sign-in handler sets.
const SessionCookieName = "session"

// RequireSession rejects requests without a valid session and puts the
// authenticated account id on the request context.
func RequireSession(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			userID, ok, err := sessions.Validate(r.Context(), token)
			if err != nil || !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"message":"Not authenticated"}`))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated account id set by
// RequireSession.
func IdentityFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(identityKey).(primitive.ObjectID)
	return id, ok
}
