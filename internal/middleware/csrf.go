package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"shopping-portal/internal/security"
)

// CSRF middleware validates CSRF tokens for state-changing requests.
// It implements the Synchronizer Token Pattern with the process token held
// by the TokenManager; pages receive it in a meta tag.
//
// Token sources (checked in order):
// - Header: X-CSRF-Token
// - Header: X-XSRF-Token (alternate)
// - Form field: csrf_token
func CSRF(tokens *security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			submittedToken := extractCSRFToken(r)
			if submittedToken == "" {
				logCSRFFailure(r, "missing token")
				http.Error(w, `{"error":"Forbidden"}`, http.StatusForbidden)
				return
			}

			if err := tokens.Verify(submittedToken); err != nil {
				logCSRFFailure(r, "invalid token")
				http.Error(w, `{"error":"Forbidden"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod returns true if the HTTP method is idempotent and cacheable.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// isExemptPath returns true if the request path should skip CSRF validation.
func isExemptPath(path string) bool {
	exemptPaths := []string{
		"/health",
		"/metrics",
		"/ws/",
	}

	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}

// extractCSRFToken extracts the CSRF token from the request.
// Headers are checked first so that JSON bodies are never parsed as forms.
func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	if token := r.Header.Get("X-XSRF-Token"); token != "" {
		return token
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return r.FormValue("csrf_token")
	}
	return ""
}

// logCSRFFailure logs a security event when CSRF validation fails.
func logCSRFFailure(r *http.Request, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.RequestURI),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
