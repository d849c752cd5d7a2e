package ai

import (
	"encoding/json"
	"strings"

	"survivalist/internal/errors"
	"survivalist/internal/types"
)

// DecodeAnalysis turns model reply text into a CareerAnalysis.
// Blank text is an empty response; text that is not JSON, or JSON that breaks the
// contract, is a malformed response carrying the underlying cause.
func DecodeAnalysis(text string) (types.CareerAnalysis, error) {
	var analysis types.CareerAnalysis

	if strings.TrimSpace(text) == "" {
		return analysis, errors.NewEmptyResponseError()
	}

	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return types.CareerAnalysis{}, errors.NewMalformedResponseError(err)
	}

	if err := ValidateAnalysisJSON(text); err != nil {
		return types.CareerAnalysis{}, errors.NewSchemaViolationError(err)
	}

	return analysis, nil
}
