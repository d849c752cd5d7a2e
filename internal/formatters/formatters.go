package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"survivalist/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "CareerReport", &CareerTextFormatter{})
	registry.RegisterFormatter("markdown", "CareerReport", &CareerMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter.
// A bare CareerAnalysis is rendered as a report without a profile section.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	if analysis, ok := data.(types.CareerAnalysis); ok && format != "json" {
		data = types.CareerReport{Analysis: analysis}
	}
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.CareerReport:
		return "CareerReport"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// CareerTextFormatter renders a career report for terminals
type CareerTextFormatter struct{}

func (ctf *CareerTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.CareerReport)
	if !ok {
		return "", fmt.Errorf("expected CareerReport, got %T", data)
	}
	result := report.Analysis

	var output strings.Builder

	if report.Profile.HasJobTitle() {
		output.WriteString("=== PROFILE ===\n")
		output.WriteString(fmt.Sprintf("Job Title:  %s\n", report.Profile.JobTitle))
		output.WriteString(fmt.Sprintf("Industry:   %s\n", report.Profile.IndustryOrDefault()))
		output.WriteString(fmt.Sprintf("Location:   %s\n", report.Profile.LocationOrDefault()))
		output.WriteString(fmt.Sprintf("Experience: %s\n\n", report.Profile.ExperienceOrDefault()))
	}

	output.WriteString("=== SURVIVAL SCORE ===\n")
	output.WriteString(fmt.Sprintf("%.1f/10 %s %s\n", result.SurvivalScore,
		ProgressBar(result.SurvivalScore, 10, barWidth), SurvivalBand(result.SurvivalScore)))
	output.WriteString(result.SurvivalScoreExplanation)
	output.WriteString("\n\n")

	output.WriteString("=== CAREER OVERVIEW ===\n")
	output.WriteString(result.CareerOverview)
	output.WriteString("\n\n")

	output.WriteString("=== SHORT-TERM UPSIDE ===\n")
	output.WriteString(result.ShortTermUpside)
	output.WriteString("\n\n")

	output.WriteString("=== AUTOMATION EXPOSURE ===\n")
	writeTextScore(&output, result.AutomationExposure)

	output.WriteString("=== BURNOUT PROBABILITY ===\n")
	writeTextScore(&output, result.BurnoutProbability)

	if len(result.LongTermRisks) > 0 {
		output.WriteString("=== LONG-TERM RISKS ===\n")
		for i, risk := range result.LongTermRisks {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, risk))
		}
	}

	return output.String(), nil
}

func (ctf *CareerTextFormatter) SupportedType() string {
	return "CareerReport"
}

func writeTextScore(output *strings.Builder, detail types.ScoreDetail) {
	output.WriteString(fmt.Sprintf("Score: %.0f/100 %s %s\n", detail.Score,
		ProgressBar(detail.Score, 100, barWidth), RiskLevel(detail.Score)))
	output.WriteString(detail.Details)
	output.WriteString("\n\n")
}

// CareerMarkdownFormatter renders a career report as markdown
type CareerMarkdownFormatter struct{}

func (cmf *CareerMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(types.CareerReport)
	if !ok {
		return "", fmt.Errorf("expected CareerReport, got %T", data)
	}
	result := report.Analysis

	var output strings.Builder

	if report.Profile.HasJobTitle() {
		output.WriteString(fmt.Sprintf("# Career Risk Report: %s\n\n", report.Profile.JobTitle))
		output.WriteString("| Industry | Location | Experience |\n")
		output.WriteString("|---|---|---|\n")
		output.WriteString(fmt.Sprintf("| %s | %s | %s |\n\n",
			escapeCell(report.Profile.IndustryOrDefault()),
			escapeCell(report.Profile.LocationOrDefault()),
			escapeCell(report.Profile.ExperienceOrDefault())))
	} else {
		output.WriteString("# Career Risk Report\n\n")
	}

	output.WriteString(fmt.Sprintf("**Survival Score:** %.1f/10 (%s)\n\n", result.SurvivalScore, SurvivalBand(result.SurvivalScore)))
	output.WriteString(fmt.Sprintf("`%s`\n\n", ProgressBar(result.SurvivalScore, 10, barWidth)))
	output.WriteString(result.SurvivalScoreExplanation)
	output.WriteString("\n\n")

	output.WriteString("## Career Overview\n\n")
	output.WriteString(result.CareerOverview)
	output.WriteString("\n\n")

	output.WriteString("## Short-Term Upside\n\n")
	output.WriteString(result.ShortTermUpside)
	output.WriteString("\n\n")

	output.WriteString("## Automation Exposure\n\n")
	writeMarkdownScore(&output, result.AutomationExposure)

	output.WriteString("## Burnout Probability\n\n")
	writeMarkdownScore(&output, result.BurnoutProbability)

	if len(result.LongTermRisks) > 0 {
		output.WriteString("## Long-Term Risks\n\n")
		for _, risk := range result.LongTermRisks {
			output.WriteString(fmt.Sprintf("- %s\n", risk))
		}
	}

	return output.String(), nil
}

func (cmf *CareerMarkdownFormatter) SupportedType() string {
	return "CareerReport"
}

func writeMarkdownScore(output *strings.Builder, detail types.ScoreDetail) {
	output.WriteString(fmt.Sprintf("**Score:** %.0f/100 (%s risk)\n\n", detail.Score, strings.ToLower(RiskLevel(detail.Score))))
	output.WriteString(detail.Details)
	output.WriteString("\n\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
