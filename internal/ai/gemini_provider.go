package ai

import (
	"context"
	stderrors "errors"
	"fmt"

	"survivalist/internal/config"
	"survivalist/internal/errors"
	"survivalist/internal/types"

	"go.opentelemetry.io/otel"
	"google.golang.org/genai"
)

// GeminiProvider implements Analyzer for Google Gemini
type GeminiProvider struct {
	client         *genai.Client // nil when no API key is configured
	config         *config.Config
	circuitBreaker *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker   *CircuitBreaker[*genai.Model]
	logger         *errors.Logger
}

// Ensure GeminiProvider implements Analyzer
var _ Analyzer = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider. Without an API key no client is built
// and every analysis fails fast with a configuration error.
func NewGeminiProvider(cfg *config.Config, logger *errors.Logger) (*GeminiProvider, error) {
	g := &GeminiProvider{
		config:         cfg,
		circuitBreaker: NewCircuitBreaker[*genai.GenerateContentResponse]("gemini", cfg.AI.CircuitBreaker, logger),
		modelBreaker:   NewCircuitBreaker[*genai.Model]("gemini-model", cfg.AI.CircuitBreaker, logger),
		logger:         logger,
	}

	if cfg.AI.APIKey == "" {
		return g, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.AI.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newTracedHTTPClient(),
	}
	if cfg.AI.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.AI.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}
	g.client = client
	return g, nil
}

// AnalyzeCareer sends one structured-output request and decodes the reply
func (g *GeminiProvider) AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *TokenUsage, error) {
	if g.client == nil {
		return types.CareerAnalysis{}, nil, errors.NewMissingCredentialError(config.ProviderGemini)
	}

	tracer := otel.Tracer("survivalist.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.analyze_career")
	defer span.End()
	span.SetAttributes(requestSpanAttributes(config.ProviderGemini, g.config.AI.Model, g.config.AI.Temperature, req)...)

	ctx, cancel := withCallTimeout(ctx, g.config.AI.Timeout)
	defer cancel()

	prompts := BuildPrompts(g.config, req)
	userPrompt := prompts.User
	genaiConfig := g.buildGenerateConfig()
	if g.config.AI.UseSystemPrompts {
		genaiConfig.SystemInstruction = genai.NewContentFromText(prompts.System, genai.RoleUser)
	} else {
		userPrompt = prompts.System + "\n\n" + prompts.User
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.config.AI.Model, genai.Text(userPrompt), genaiConfig)
	})
	if err != nil {
		err = g.classifyError(err)
		recordSpanFailure(span, err)
		return types.CareerAnalysis{}, nil, err
	}

	tokenUsage := extractTokenUsage(result)

	analysis, err := DecodeAnalysis(responseText(result))
	if err != nil {
		recordSpanFailure(span, err)
		return types.CareerAnalysis{}, tokenUsage, err
	}

	recordSpanSuccess(span, analysis, tokenUsage)
	return analysis, tokenUsage, nil
}

// buildGenerateConfig attaches the analysis contract as the response schema
func (g *GeminiProvider) buildGenerateConfig() *genai.GenerateContentConfig {
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   GenaiSchema(),
	}

	// Apply temperature configuration if set
	if g.config.AI.Temperature > 0 {
		temperature := g.config.AI.Temperature
		genaiConfig.Temperature = &temperature
	}

	return genaiConfig
}

// classifyError turns an SDK failure into a transport error, keeping the HTTP status when known
func (g *GeminiProvider) classifyError(err error) error {
	classified := newTransportError(config.ProviderGemini, err)

	appErr, ok := errors.AsAppError(classified)
	if !ok {
		return classified
	}
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		appErr.WithContext("status_code", apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if stderrors.As(err, &apiErrPtr) {
		appErr.WithContext("status_code", apiErrPtr.Code)
	}
	return appErr
}

// responseText returns the text of the first candidate, or "" when there is none
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	return result.Text()
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.AI.Model,
		Provider:  config.ProviderGemini,
		Available: false,
	}

	if g.client == nil {
		modelInfo.Error = errors.NewMissingCredentialError(config.ProviderGemini).Message
		return modelInfo
	}

	timeout := g.config.Observability.HealthCheck.AIModelCheckTimeout
	if timeout <= 0 {
		timeout = defaultModelCheckTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.AI.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.AI.Model,
			"provider", config.ProviderGemini,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.AI.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements Analyzer. The Gemini client holds no resources in single-shot usage.
func (g *GeminiProvider) Close() error {
	return nil
}
