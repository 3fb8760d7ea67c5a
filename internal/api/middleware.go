package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

// OwnerIdentifier returns middleware that extracts the caller's identity
// from a bearer token, when one is present and valid. Anonymous requests
// pass through untouched; owner identity only gates owner-scoped routes.
func OwnerIdentifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	verifier := jwtauth.Verifier(ja)
	return func(next http.Handler) http.Handler {
		extract := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err == nil && token != nil {
				if sub, ok := claims["sub"].(string); ok && sub != "" {
					r = r.WithContext(context.WithValue(r.Context(), ownerIDKey, sub))
				}
			}
			next.ServeHTTP(w, r)
		})
		return verifier(extract)
	}
}

// OwnerID returns the authenticated owner id from the request context, or
// the empty string for anonymous requests.
func OwnerID(r *http.Request) string {
	if v, ok := r.Context().Value(ownerIDKey).(string); ok {
		return v
	}
	return ""
}
