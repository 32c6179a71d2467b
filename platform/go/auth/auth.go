package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const ctxCredentials ctxKey = "PORTAL_CREDENTIALS"

// Credentials is the authenticated caller identity carried on the request context.
type Credentials struct {
	AccountID uuid.UUID
	Email     string
	Role      string
}

// IsAdmin reports whether the credentials carry the admin role.
func (c *Credentials) IsAdmin() bool {
	return c != nil && c.Role == "admin"
}

// UserFromContext returns the credentials stored by the JWT middleware.
func UserFromContext(ctx context.Context) (*Credentials, bool) {
	v := ctx.Value(ctxCredentials)
	if v == nil {
		return nil, false
	}
	c, ok := v.(*Credentials)
	return c, ok
}

// VerifyFunc validates the incoming token string and returns the caller credentials.
type VerifyFunc func(ctx context.Context, token string) (*Credentials, error)

// JWT parses the Authorization header and sets the context credentials using
// the provided verify function. Requests without a bearer token pass through
// unauthenticated; a present but invalid token is rejected.
func JWT(verify VerifyFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if token == "" || !found {
				next.ServeHTTP(w, r)
				return
			}

			creds, err := verify(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="api", error="invalid_token", error_description="%s"`, err.Error()))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxCredentials, creds)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractJWTToken pulls the bearer token out of the Authorization header.
func ExtractJWTToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	// Case-insensitive prefix match.
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(authHeader[len(prefix):]), true
}

// RequireRole gates a route group on the caller's role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := UserFromContext(r.Context())
			if !ok || creds == nil || creds.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
