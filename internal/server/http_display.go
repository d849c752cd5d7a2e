package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health               - Health check with AI model status")
	fmt.Println("  GET    /stats                - Server and session statistics")
	if s.Observability.MetricsHandler() != nil {
		fmt.Printf("  GET    %-21s - Prometheus metrics\n", s.Observability.MetricsEndpoint())
	}
	fmt.Println("  POST   /api/analysis         - Submit a job profile for analysis")
	fmt.Println("  GET    /api/analysis         - Current analysis state of a session")
	fmt.Println("  GET    /api/analysis/events  - Stream analysis state changes (SSE)")
	fmt.Println("  DELETE /api/analysis         - Drop a session")
	if s.AppConfig != nil && s.AppConfig.Server.SessionTTL > 0 {
		fmt.Printf("Sessions are identified by the %s header and expire after %s idle\n", SessionHeader, s.AppConfig.Server.SessionTTL)
	} else {
		fmt.Printf("Sessions are identified by the %s header and never expire\n", SessionHeader)
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api/analysis")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
