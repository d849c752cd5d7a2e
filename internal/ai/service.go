package ai

import (
	"context"
	"fmt"

	"survivalist/internal/config"
	"survivalist/internal/errors"
	"survivalist/internal/observability"
	"survivalist/internal/types"
)

// Service wraps the configured provider with metrics. It implements Analyzer.
type Service struct {
	Provider      Analyzer // Exported for access from server package
	config        *config.Config
	observability *observability.ObservabilityManager
	logger        *errors.Logger
}

var _ Analyzer = (*Service)(nil)

// NewService creates the AI service for the configured provider. om may be nil.
func NewService(cfg *config.Config, om *observability.ObservabilityManager, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"temperature", cfg.AI.Temperature,
		"timeout", cfg.AI.Timeout,
		"api_key_present", cfg.AI.APIKey != "",
		"use_system_prompts", cfg.AI.UseSystemPrompts)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		Provider:      provider,
		config:        cfg,
		observability: om,
		logger:        logger,
	}, nil
}

func newProvider(cfg *config.Config, logger *errors.Logger) (Analyzer, error) {
	var provider Analyzer
	var err error

	switch cfg.AI.Provider {
	case config.ProviderGemini:
		provider, err = NewGeminiProvider(cfg, logger)
	case config.ProviderOpenAI:
		provider, err = NewOpenAIProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.AI.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}
	return provider, nil
}

// AnalyzeCareer runs one analysis through the provider and records its metrics
func (s *Service) AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *TokenUsage, error) {
	var analysis types.CareerAnalysis
	var usage *TokenUsage

	err := s.observability.TrackAIOperation(ctx, "analyze_career", s.config.AI.Provider,
		func(ctx context.Context) *observability.AIOperationResult {
			var err error
			analysis, usage, err = s.Provider.AnalyzeCareer(ctx, req)
			result := &observability.AIOperationResult{Error: err}
			if usage != nil {
				result.TokenUsage = &observability.TokenUsage{
					InputTokens:  usage.InputTokens,
					OutputTokens: usage.OutputTokens,
					TotalTokens:  usage.TotalTokens,
				}
			}
			return result
		})
	if err != nil {
		return types.CareerAnalysis{}, usage, err
	}

	return analysis, usage, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns the provider's breaker statistics
func (s *Service) GetCircuitBreakerStats() map[string]any {
	if p, ok := s.Provider.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
		return p.GetCircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}
