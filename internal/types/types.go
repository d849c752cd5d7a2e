package types

import "strings"

// Prompt defaults used when an optional profile field is left blank.
const (
	DefaultIndustry   = "General"
	DefaultLocation   = "Global/Remote"
	DefaultExperience = "Not specified"
)

// AnalysisRequest is the job profile submitted for analysis.
// Optional fields are free-form; YearsExperience accepts phrases like "Entry Level".
type AnalysisRequest struct {
	JobTitle        string `json:"jobTitle" yaml:"jobTitle" validate:"max=200"`
	Industry        string `json:"industry,omitempty" yaml:"industry" validate:"max=200"`
	Location        string `json:"location,omitempty" yaml:"location" validate:"max=200"`
	YearsExperience string `json:"yearsExperience,omitempty" yaml:"yearsExperience" validate:"max=100"`
}

// HasJobTitle reports whether the request carries a non-blank job title.
func (r AnalysisRequest) HasJobTitle() bool {
	return strings.TrimSpace(r.JobTitle) != ""
}

// Normalized returns a copy with surrounding whitespace removed from every field.
func (r AnalysisRequest) Normalized() AnalysisRequest {
	return AnalysisRequest{
		JobTitle:        strings.TrimSpace(r.JobTitle),
		Industry:        strings.TrimSpace(r.Industry),
		Location:        strings.TrimSpace(r.Location),
		YearsExperience: strings.TrimSpace(r.YearsExperience),
	}
}

// IndustryOrDefault returns the industry, or DefaultIndustry when unset.
func (r AnalysisRequest) IndustryOrDefault() string {
	return orDefault(r.Industry, DefaultIndustry)
}

// LocationOrDefault returns the location, or DefaultLocation when unset.
func (r AnalysisRequest) LocationOrDefault() string {
	return orDefault(r.Location, DefaultLocation)
}

// ExperienceOrDefault returns the experience, or DefaultExperience when unset.
func (r AnalysisRequest) ExperienceOrDefault() string {
	return orDefault(r.YearsExperience, DefaultExperience)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// ScoreDetail is a 0-100 score with its reasoning.
type ScoreDetail struct {
	Score   float64 `json:"score"`   // 0-100
	Details string  `json:"details"` // Why the score is what it is
}

// CareerAnalysis is the structured risk assessment returned by the model.
type CareerAnalysis struct {
	CareerOverview           string      `json:"careerOverview"`
	ShortTermUpside          string      `json:"shortTermUpside"`
	LongTermRisks            []string    `json:"longTermRisks"`
	AutomationExposure       ScoreDetail `json:"automationExposure"`
	BurnoutProbability       ScoreDetail `json:"burnoutProbability"`
	SurvivalScore            float64     `json:"survivalScore"` // 0.0-10.0
	SurvivalScoreExplanation string      `json:"survivalScoreExplanation"`
}

// CareerReport pairs an analysis with the profile it was produced for.
type CareerReport struct {
	Profile  AnalysisRequest `json:"profile"`
	Analysis CareerAnalysis  `json:"analysis"`
}
