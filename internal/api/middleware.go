// Package api implements the REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Paul-Bonneville-Labs/neemee-mcp/internal/auth"
)

type ctxKey struct{}

// AuthMiddleware validates the "Authorization: Bearer <api key>" header via
// the authenticator and stores the resulting auth context on the request.
// Missing, wrong, and expired keys all get the same 401.
func AuthMiddleware(authn *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			rawKey, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			authCtx, ok := authn.Authenticate(r.Context(), rawKey)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, authCtx)))
		})
	}
}

// RequireScope rejects requests whose key lacks the scope with 403.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.HasScope(authContext(r), scope) {
				writeJSON(w, http.StatusForbidden, errorBody("insufficient scope"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authContext returns the authenticated context stored by AuthMiddleware,
// or nil outside the auth group.
func authContext(r *http.Request) *auth.Context {
	c, _ := r.Context().Value(ctxKey{}).(*auth.Context)
	return c
}
