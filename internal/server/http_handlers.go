package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const defaultModelCheckTimeout = 10 * time.Second

// modelCheckTimeout returns the configured deadline for the health check model lookup
func (s *Server) modelCheckTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout > 0 {
		return s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
	}
	return defaultModelCheckTimeout
}

// healthHandler reports service health including the AI model status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.modelCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "survivalist",
		"version": s.Version,
	}

	modelInfo := s.Analyzer.GetModelInfo(ctx)
	response["ai_model"] = modelInfo
	response["circuit_breaker"] = s.circuitBreakerStats()

	statusCode := http.StatusOK
	if modelInfo == nil || !modelInfo.Available {
		response["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, response)
}

// circuitBreakerStats asks the analyzer for breaker statistics when it keeps any
func (s *Server) circuitBreakerStats() map[string]any {
	if cb, ok := s.Analyzer.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
		return cb.GetCircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// statsHandler provides server statistics including sessions and rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	byStatus := map[string]int{}
	for status, count := range s.Sessions.StatusCounts() {
		byStatus[string(status)] = count
	}

	response := map[string]any{
		"service":        "survivalist",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_auth_enabled":       len(s.APIKeys) > 0,
		},
		"sessions": map[string]any{
			"active":    s.Sessions.Len(),
			"by_status": byStatus,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeJSON encodes body with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Warn("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Message: message,
	})
}
