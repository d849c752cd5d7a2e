package ai

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"survivalist/internal/errors"
	"survivalist/internal/types"
)

const defaultModelCheckTimeout = 10 * time.Second

// newTracedHTTPClient returns the HTTP client providers send requests through
func newTracedHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// withCallTimeout bounds a single provider call. Zero leaves ctx untouched.
func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// newTransportError wraps a failed provider call. Errors that are already classified
// (an open breaker) pass through unchanged.
func newTransportError(provider string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}

	code := errors.ErrCodeAIServiceFailed
	message := "AI service call failed"
	if stderrors.Is(err, context.DeadlineExceeded) {
		code = errors.ErrCodeAITimeout
		message = "AI service call timed out"
	}
	return errors.NewTransportError(code, message, err).WithContext("provider", provider)
}

func requestSpanAttributes(provider, model string, temperature float32, req types.AnalysisRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
		attribute.Float64("ai.temperature", float64(temperature)),
		attribute.Int("input.job_title_length", len(req.JobTitle)),
		attribute.Bool("input.has_industry", req.Industry != ""),
		attribute.Bool("input.has_location", req.Location != ""),
		attribute.Bool("input.has_experience", req.YearsExperience != ""),
	}
}

func recordSpanFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.Bool("success", false),
		attribute.String("error.code", errors.GetErrorCode(err)),
	)
}

func recordSpanSuccess(span trace.Span, analysis types.CareerAnalysis, usage *TokenUsage) {
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Float64("analysis.survival_score", analysis.SurvivalScore),
		attribute.Float64("analysis.automation_score", analysis.AutomationExposure.Score),
		attribute.Float64("analysis.burnout_score", analysis.BurnoutProbability.Score),
		attribute.Int("analysis.risk_count", len(analysis.LongTermRisks)),
	)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
}
