package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware guards handlers with bearer-token authentication. It is optional:
// the API server registers routes unwrapped when no secret is configured.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware creates auth middleware for the shared secret.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{verifier: NewVerifier(secret)}
}

// RequireScope wraps next, rejecting requests without a valid bearer token
// carrying the given scope.
func (m *Middleware) RequireScope(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := m.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if !claims.HasScope(scope) {
			writeAuthError(w, http.StatusForbidden, "insufficient scope")
			return
		}

		next(w, r)
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
