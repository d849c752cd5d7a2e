package server

import (
	"sync"
	"time"

	"survivalist/internal/ai"
	"survivalist/internal/config"
	survivalistErrors "survivalist/internal/errors"
	"survivalist/internal/observability"
	"survivalist/internal/session"
)

// SessionHeader carries the session id in both directions
const SessionHeader = "X-Session-ID"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Analyzer      ai.Analyzer
	Sessions      *session.Store
	Observability *observability.ObservabilityManager
	Logger        *survivalistErrors.Logger

	startedAt time.Time

	// Closed when graceful shutdown begins so event streams end
	streamsDone      chan struct{}
	closeStreamsOnce sync.Once
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	SessionTTL     time.Duration
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFromApp derives the server settings from the loaded configuration
func ServerConfigFromApp(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxRequestSize,
		SessionTTL:     cfg.Server.SessionTTL,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server. om may be nil.
func NewServer(appCfg *config.Config, cfg ServerConfig, analyzer ai.Analyzer, om *observability.ObservabilityManager, logger *survivalistErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	var opts []session.Option
	if om != nil {
		opts = append(opts, session.WithRecorder(om))
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Analyzer:       analyzer,
		Sessions:       session.NewStore(analyzer, cfg.SessionTTL, logger, opts...),
		Observability:  om,
		Logger:         logger,
		startedAt:      time.Now(),
		streamsDone:    make(chan struct{}),
	}
}

// closeStreams ends every open event stream. http.Server.Shutdown does not
// cancel request contexts, so long-lived streams need their own signal.
func (s *Server) closeStreams() {
	s.closeStreamsOnce.Do(func() { close(s.streamsDone) })
}
