package ai

import (
	"fmt"

	"survivalist/internal/config"
	"survivalist/internal/types"
)

// DefaultSystemPrompt sets the analyst persona sent with every analysis
const DefaultSystemPrompt = "You are a ruthless, data-driven Career Risk & Longevity Analyzer. " +
	"Your goal is to stress-test careers against reality. Do NOT sell dreams. " +
	"Be brutally honest about survivability, automation, and burnout. " +
	"If a career is dying or high-risk, say so. " +
	"Consider geography and time horizon if provided. " +
	"Output MUST be strictly JSON."

// DefaultUserPrompt is filled with job title, industry, location and experience, in that order
const DefaultUserPrompt = `Analyze the following career profile:
Job Title: %s
Industry: %s
Location: %s
Experience: %s

Provide a risk assessment based on current market trends, AI advancement, and economic factors.`

// Prompts is a rendered prompt pair ready to send
type Prompts struct {
	System string
	User   string
}

// BuildPrompts renders the prompts for req. Custom prompts from cfg take priority over the
// built-in ones and blank optional fields fall back to their documented defaults.
func BuildPrompts(cfg *config.Config, req types.AnalysisRequest) Prompts {
	var custom config.LoadedPrompts
	if cfg != nil {
		custom = cfg.ResolvedPrompts()
	}

	template := resolvePrompt(custom.UserPrompt, DefaultUserPrompt)
	return Prompts{
		System: resolvePrompt(custom.SystemPrompt, DefaultSystemPrompt),
		User: fmt.Sprintf(template,
			req.JobTitle,
			req.IndustryOrDefault(),
			req.LocationOrDefault(),
			req.ExperienceOrDefault()),
	}
}

// resolvePrompt picks the custom prompt when one is set, otherwise the built-in default
func resolvePrompt(custom, fromDefault string) string {
	if custom != "" {
		return custom
	}
	return fromDefault
}
