package middleware

import (
	"net/http"

	"shopping-portal/internal/observability"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestContext copies chi's request id into the observability context
// so logs and outgoing shop API calls carry the same id. It must run after
// chimiddleware.RequestID.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(observability.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
