package common

import (
	"context"

	"survivalist/internal/ai"
	"survivalist/internal/errors"
	"survivalist/internal/session"
	"survivalist/internal/types"
)

// AnalysisCommand runs a single career analysis from the command line
type AnalysisCommand struct {
	Analyzer ai.Analyzer
	Output   *OutputHandler
	Logger   *errors.Logger
	Options  []session.Option
}

// Run validates req, submits it once and renders the report.
// A failed analysis surfaces only the generic message; details go to the log.
func (c *AnalysisCommand) Run(ctx context.Context, req types.AnalysisRequest, cmdConfig CommandConfig) error {
	if !req.HasJobTitle() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "job title is required", nil)
	}
	if err := ValidateRequest(req); err != nil {
		return err
	}
	req = req.Normalized()

	c.Logger.Info("Starting career analysis",
		"job_title", req.JobTitle,
		"industry", req.IndustryOrDefault(),
		"location", req.LocationOrDefault(),
		"output_format", cmdConfig.OutputFormat)

	orchestrator := session.NewOrchestrator(c.Analyzer, c.Logger, c.Options...)
	state := orchestrator.Submit(ctx, req)

	if state.Status != session.StatusSuccess || state.Analysis == nil {
		return errors.NewAIError(errors.ErrCodeAnalysisFailed, session.GenericErrorMessage, nil)
	}

	report := types.CareerReport{Profile: req, Analysis: *state.Analysis}
	return c.Output.HandleOutput(report, cmdConfig)
}
