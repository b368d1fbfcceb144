package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// Ready returns readiness with every dependency probed in parallel
func Ready(checks map[string]CheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		type named struct {
			name   string
			result HealthCheckResult
		}
		results := make(chan named, len(checks))
		for name, check := range checks {
			go func(name string, check CheckFunc) {
				results <- named{name, runCheck(ctx, check)}
			}(name, check)
		}

		byName := make(map[string]HealthCheckResult, len(checks))
		allHealthy := true
		for range checks {
			res := <-results
			byName[res.name] = res.result
			allHealthy = allHealthy && res.result.Status == "up"
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    byName,
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			response["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}

func runCheck(ctx context.Context, check CheckFunc) HealthCheckResult {
	start := time.Now()
	err := check(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
	}
}
