package middleware

import (
	"encoding/json"
	"net/http"
)

// SessionHolder reports whether the client currently holds a bearer token
type SessionHolder interface {
	Authenticated() bool
}

// RequireSession rejects requests with 401 while no shop session is held
func RequireSession(sessions SessionHolder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.Authenticated() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
