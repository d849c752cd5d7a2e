package cli

import (
	"fmt"
	"strings"

	"survivalist/internal/ai"
	"survivalist/internal/common"
	"survivalist/internal/config"
	"survivalist/internal/errors"
	"survivalist/internal/observability"
	"survivalist/internal/session"
	"survivalist/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [job title]",
	Short: "Assess the survival outlook of a job title",
	Long: `Analyze a job title and report how exposed it is to automation, how likely
it is to burn people out and how long the market will keep paying for it.

The job title may be given as arguments, through --profile or both. Flags and
arguments override the values read from the profile file.

Examples:
  survivalist analyze "Radiology Technician" --location "Lisbon"
  survivalist analyze --profile me.yaml --format markdown -o report.md`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

var analyzeProfile struct {
	File       string
	Industry   string
	Location   string
	Experience string
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().StringVar(&analyzeProfile.File, "profile", "", "YAML or JSON profile file")
	analyzeCmd.Flags().StringVar(&analyzeProfile.Industry, "industry", "", "Industry the role is in")
	analyzeCmd.Flags().StringVar(&analyzeProfile.Location, "location", "", "Where the role is based")
	analyzeCmd.Flags().StringVar(&analyzeProfile.Experience, "experience", "", "Years of experience, free text")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(errors.Discard()).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	req, err := buildAnalysisRequest(cmd, args, cfg, logger)
	if err != nil {
		return err
	}

	om := newCLIObservability(cfg, logger)
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

	analysis := &common.AnalysisCommand{
		Analyzer: aiService,
		Output:   common.NewOutputHandlerWithWriter(cmd.OutOrStdout(), logger),
		Logger:   logger,
	}
	if om != nil {
		analysis.Options = append(analysis.Options, session.WithRecorder(om))
	}
	return analysis.Run(cmd.Context(), req, analyzeConfig)
}

// buildAnalysisRequest merges the profile file, the flags and the positional title, in that order of precedence
func buildAnalysisRequest(cmd *cobra.Command, args []string, cfg *config.Config, logger *errors.Logger) (types.AnalysisRequest, error) {
	var req types.AnalysisRequest
	if analyzeProfile.File != "" {
		profile, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).ReadProfile(analyzeProfile.File)
		if err != nil {
			return types.AnalysisRequest{}, err
		}
		req = profile
	}

	flags := cmd.Flags()
	if flags.Changed("industry") {
		req.Industry = analyzeProfile.Industry
	}
	if flags.Changed("location") {
		req.Location = analyzeProfile.Location
	}
	if flags.Changed("experience") {
		req.YearsExperience = analyzeProfile.Experience
	}
	if title := strings.TrimSpace(strings.Join(args, " ")); title != "" {
		req.JobTitle = title
	}
	return req, nil
}

// newCLIObservability sets up tracing for a one-shot run. Prometheus and console
// exporters stay off since nothing scrapes a CLI and stdout carries the report.
func newCLIObservability(cfg *config.Config, logger *errors.Logger) *observability.ObservabilityManager {
	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	if !obsConfig.Enabled || !obsConfig.OTLP.Enabled {
		return nil
	}
	obsConfig.ConsoleOutput = false
	obsConfig.Prometheus.Enabled = false

	om, err := observability.NewObservabilityManager(obsConfig)
	if err != nil {
		logger.LogError(err, "Failed to initialize observability, continuing without it")
		return nil
	}
	return om
}
