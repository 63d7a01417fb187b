package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so no other package
// can read or shadow the values stored under it.
type contextKey string

const userIDKey contextKey = "userID"

// TokenCookie is the cookie name accepted as an alternative to the Authorization header.
const TokenCookie = "token"

// Verifier resolves a bearer token to the owning user id.
//
// ok is false when the token is unknown or expired. err is reserved for backend
// failures: a store that cannot be reached must not turn into "not logged in".
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, ok bool, err error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the bearer token (Authorization header, then the "token" cookie),
// resolves it through the Verifier and stores the user id in the request context.
// A missing, unknown or expired token stops the chain with 401; a backend failure
// stops it with 503.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
				return
			}

			userID, ok, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.Error("session verification failed", slog.String("error", err.Error()))
				writeAuthError(w, http.StatusServiceUnavailable, "backend_unavailable", "session store is temporarily unavailable")
				return
			}
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth extracts the user identity if a valid token is present, but does NOT
// block the request if it's missing, unknown or expired. Such requests continue as
// anonymous. Backend failures still stop the request with 503.
//
// Handlers check for the user via UserIDFromContext; if it returns ("", false),
// the request is anonymous.
func OptionalAuth(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.Error("session verification failed", slog.String("error", err.Error()))
				writeAuthError(w, http.StatusServiceUnavailable, "backend_unavailable", "session store is temporarily unavailable")
				return
			}
			if ok {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// TokenFromRequest returns the bearer token of the request, or "" when there is none.
//
// The Authorization header ("Bearer <token>", scheme case-insensitive) wins over the
// "token" cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// writeAuthError mirrors the handler package's error body: {"error": ..., "message": ...}.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
