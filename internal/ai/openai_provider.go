package ai

import (
	"context"
	stderrors "errors"
	"fmt"

	"survivalist/internal/config"
	"survivalist/internal/errors"
	"survivalist/internal/types"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
)

// OpenAIProvider implements Analyzer for OpenAI-compatible chat completion endpoints
type OpenAIProvider struct {
	client         *openai.Client // nil when no API key is configured
	config         *config.Config
	circuitBreaker *CircuitBreaker[*openai.ChatCompletion]
	modelBreaker   *CircuitBreaker[*openai.Model]
	logger         *errors.Logger
}

var _ Analyzer = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider. The SDK's own retries are turned off
// so each analysis is exactly one request.
func NewOpenAIProvider(cfg *config.Config, logger *errors.Logger) (*OpenAIProvider, error) {
	o := &OpenAIProvider{
		config:         cfg,
		circuitBreaker: NewCircuitBreaker[*openai.ChatCompletion]("openai", cfg.AI.CircuitBreaker, logger),
		modelBreaker:   NewCircuitBreaker[*openai.Model]("openai-model", cfg.AI.CircuitBreaker, logger),
		logger:         logger,
	}

	if cfg.AI.APIKey == "" {
		return o, nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.AI.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(newTracedHTTPClient()),
	}
	if cfg.AI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.AI.BaseURL))
	}

	client := openai.NewClient(opts...)
	o.client = &client
	return o, nil
}

// AnalyzeCareer sends one chat completion constrained by the analysis JSON schema
func (o *OpenAIProvider) AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *TokenUsage, error) {
	if o.client == nil {
		return types.CareerAnalysis{}, nil, errors.NewMissingCredentialError(config.ProviderOpenAI)
	}

	tracer := otel.Tracer("survivalist.ai.openai")
	ctx, span := tracer.Start(ctx, "openai.analyze_career")
	defer span.End()
	span.SetAttributes(requestSpanAttributes(config.ProviderOpenAI, o.config.AI.Model, o.config.AI.Temperature, req)...)

	ctx, cancel := withCallTimeout(ctx, o.config.AI.Timeout)
	defer cancel()

	params := o.buildParams(BuildPrompts(o.config, req))

	resp, err := o.circuitBreaker.Execute(func() (*openai.ChatCompletion, error) {
		return o.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		err = o.classifyError(err)
		recordSpanFailure(span, err)
		return types.CareerAnalysis{}, nil, err
	}

	tokenUsage := &TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
		if refusal := resp.Choices[0].Message.Refusal; refusal != "" && text == "" {
			o.logger.Warn("Model refused the analysis", "refusal", refusal)
		}
	}

	analysis, err := DecodeAnalysis(text)
	if err != nil {
		recordSpanFailure(span, err)
		return types.CareerAnalysis{}, tokenUsage, err
	}

	recordSpanSuccess(span, analysis, tokenUsage)
	return analysis, tokenUsage, nil
}

func (o *OpenAIProvider) buildParams(prompts Prompts) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompts.System + "\n\n" + prompts.User),
	}
	if o.config.AI.UseSystemPrompts {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.System),
			openai.UserMessage(prompts.User),
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.config.AI.Model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "career_analysis",
					Description: openai.String("Career risk and longevity assessment"),
					Schema:      requestSchema(),
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	if o.config.AI.Temperature > 0 {
		params.Temperature = openai.Float(float64(o.config.AI.Temperature))
	}

	return params
}

// requestSchema is the contract without range keywords, which strict mode rejects
func requestSchema() map[string]any {
	return jsonObject(AnalysisContract, "", false)
}

func (o *OpenAIProvider) classifyError(err error) error {
	classified := newTransportError(config.ProviderOpenAI, err)

	appErr, ok := errors.AsAppError(classified)
	if !ok {
		return classified
	}
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		appErr.WithContext("status_code", apiErr.StatusCode)
	}
	return appErr
}

// GetModelInfo checks that the configured model is visible to the API key
func (o *OpenAIProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:     o.config.AI.Model,
		Provider: config.ProviderOpenAI,
	}

	if o.client == nil {
		modelInfo.Error = errors.NewMissingCredentialError(config.ProviderOpenAI).Message
		return modelInfo
	}

	timeout := o.config.Observability.HealthCheck.AIModelCheckTimeout
	if timeout <= 0 {
		timeout = defaultModelCheckTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model, err := o.modelBreaker.Execute(func() (*openai.Model, error) {
		return o.client.Models.Get(checkCtx, o.config.AI.Model)
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		o.logger.Warn("Model availability check failed",
			"model", o.config.AI.Model,
			"provider", config.ProviderOpenAI,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.ID
	modelInfo.Version = model.OwnedBy
	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (o *OpenAIProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    o.circuitBreaker.GetStats(),
		"model_operations": o.modelBreaker.GetStats(),
		"overall_healthy":  o.circuitBreaker.IsHealthy() && o.modelBreaker.IsHealthy(),
	}
}

// Close implements Analyzer
func (o *OpenAIProvider) Close() error {
	return nil
}
