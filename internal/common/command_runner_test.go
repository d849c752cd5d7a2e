package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivalist/internal/ai"
	"survivalist/internal/errors"
	"survivalist/internal/session"
	"survivalist/internal/types"
)

type stubAnalyzer struct {
	analysis types.CareerAnalysis
	err      error
	calls    int
	last     types.AnalysisRequest
}

func (s *stubAnalyzer) AnalyzeCareer(ctx context.Context, req types.AnalysisRequest) (types.CareerAnalysis, *ai.TokenUsage, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return types.CareerAnalysis{}, nil, s.err
	}
	return s.analysis, &ai.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, nil
}

func (s *stubAnalyzer) GetModelInfo(ctx context.Context) *ai.ModelInfo { return nil }

func (s *stubAnalyzer) Close() error { return nil }

func newCommand(analyzer ai.Analyzer, out *bytes.Buffer) *AnalysisCommand {
	logger := errors.Discard()
	return &AnalysisCommand{
		Analyzer: analyzer,
		Output:   NewOutputHandlerWithWriter(out, logger),
		Logger:   logger,
	}
}

func TestAnalysisCommandRendersReport(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: types.CareerAnalysis{
		CareerOverview:     "Steady.",
		LongTermRisks:      []string{"a", "b", "c"},
		AutomationExposure: types.ScoreDetail{Score: 20, Details: "Hands-on work."},
		BurnoutProbability: types.ScoreDetail{Score: 75, Details: "Night shifts."},
		SurvivalScore:      8.1,
	}}
	var out bytes.Buffer

	err := newCommand(analyzer, &out).Run(context.Background(),
		types.AnalysisRequest{JobTitle: "  Nurse ", Industry: "Healthcare"},
		CommandConfig{OutputFormat: "text"})
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, "Nurse", analyzer.last.JobTitle)
	assert.Contains(t, out.String(), "Job Title:  Nurse")
	assert.Contains(t, out.String(), "8.1/10")
	assert.Contains(t, out.String(), "RESILIENT")
}

func TestAnalysisCommandWritesFile(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: types.CareerAnalysis{SurvivalScore: 5}}
	target := filepath.Join(t.TempDir(), "out", "report.json")
	var out bytes.Buffer

	err := newCommand(analyzer, &out).Run(context.Background(),
		types.AnalysisRequest{JobTitle: "Translator"},
		CommandConfig{OutputFormat: "json", OutputFile: target})
	require.NoError(t, err)
	assert.Empty(t, out.String())

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"jobTitle": "Translator"`)
	assert.Contains(t, string(written), `"survivalScore": 5`)
}

func TestAnalysisCommandFailureIsGeneric(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.NewMalformedResponseError(assert.AnError)}
	var out bytes.Buffer

	err := newCommand(analyzer, &out).Run(context.Background(),
		types.AnalysisRequest{JobTitle: "Cashier"}, CommandConfig{OutputFormat: "text"})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAnalysisFailed, appErr.Code)
	assert.Equal(t, session.GenericErrorMessage, appErr.Message)
	assert.Empty(t, out.String())
}

func TestAnalysisCommandRejectsInput(t *testing.T) {
	analyzer := &stubAnalyzer{}
	var out bytes.Buffer
	cmd := newCommand(analyzer, &out)

	err := cmd.Run(context.Background(), types.AnalysisRequest{JobTitle: "   "}, CommandConfig{OutputFormat: "json"})
	assert.True(t, errors.IsValidationError(err))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	err = cmd.Run(context.Background(), types.AnalysisRequest{JobTitle: string(long)}, CommandConfig{OutputFormat: "json"})
	assert.True(t, errors.IsValidationError(err))

	assert.Zero(t, analyzer.calls)
}
