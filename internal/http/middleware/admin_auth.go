package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/carefront-intake/internal/auth"
)

// DeniedFunc is told about every rejected admin request.
type DeniedFunc func(r *http.Request, err error)

// RequireAdmin authenticates the bearer token and only lets admin principals through.
func RequireAdmin(authn auth.Authenticator, onDenied DeniedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				deny(w, r, onDenied, auth.ErrNotConfigured)
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				deny(w, r, onDenied, auth.ErrUnauthenticated)
				return
			}
			principal, err := authn.Authenticate(r.Context(), strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				deny(w, r, onDenied, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, onDenied DeniedFunc, err error) {
	if onDenied != nil {
		onDenied(r, err)
	}
	switch {
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotConfigured):
		http.Error(w, "admin auth disabled", http.StatusUnauthorized)
	default:
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}
}
