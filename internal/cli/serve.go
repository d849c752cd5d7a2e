package cli

import (
	"fmt"

	"survivalist/internal/ai"
	"survivalist/internal/config"
	"survivalist/internal/observability"
	"survivalist/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for career risk analysis",
	Long: `Start an HTTP server that runs career risk analyses per client session.

Available endpoints:
- POST /api/analysis: Submit a profile (add ?async=true to return immediately)
- GET /api/analysis: Current state of the session named by X-Session-ID
- GET /api/analysis/events: Server-Sent Events stream of session state changes
- DELETE /api/analysis: Drop the session
- GET /health: Health check including AI model availability
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

var serveFlags struct {
	Port     string
	Host     string
	TLSMode  string
	CertFile string
	KeyFile  string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.Port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.TLSMode, "tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.CertFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.KeyFile, "key-file", "", "Server private key file (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeFlags(cmd, cfg)
	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version))
	if err != nil {
		logger.LogError(err, "Failed to initialize observability, continuing without it")
		om = nil
	}
	defer shutdownObservability(om, logger)

	aiService, err := ai.NewService(cfg, om, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() {
		if err := aiService.Close(); err != nil {
			logger.LogError(err, "Failed to close AI service")
		}
	}()

	srv := server.NewServer(cfg, server.ServerConfigFromApp(cfg, Version), aiService, om, logger)
	return srv.Start(cmd.Context())
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = serveFlags.Port
	}
	if flags.Changed("host") {
		cfg.Server.Host = serveFlags.Host
	}
	if flags.Changed("tls-mode") {
		cfg.Server.TLS.Mode = serveFlags.TLSMode
	}
	if flags.Changed("cert-file") {
		cfg.Server.TLS.CertFile = serveFlags.CertFile
	}
	if flags.Changed("key-file") {
		cfg.Server.TLS.KeyFile = serveFlags.KeyFile
	}
}
