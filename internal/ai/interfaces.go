package ai

import (
	"context"

	"survivalist/internal/types"
)

// Analyzer turns a job profile into a structured career risk assessment.
// Token usage is returned alongside the result; callers can ignore it if not needed.
type Analyzer interface {
	AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
