package ai

import (
	"time"

	"survivalist/internal/config"
	"survivalist/internal/types"
)

const truckDriverJSON = `{
  "careerOverview": "Long-haul trucking pays the bills today. The road ahead is being paved for machines.",
  "shortTermUpside": "Chronic driver shortage keeps wages and sign-on bonuses high.",
  "longTermRisks": ["Autonomous freight corridors", "Platooning cuts crew sizes", "Carrier consolidation"],
  "automationExposure": {"score": 82, "details": "Highway driving is the easiest part of the job to automate."},
  "burnoutProbability": {"score": 68, "details": "Weeks away from home and irregular sleep."},
  "survivalScore": 2.3,
  "survivalScoreExplanation": "Ride the shortage while it lasts and plan an exit into logistics."
}`

var truckDriverRequest = types.AnalysisRequest{
	JobTitle:        "Truck Driver",
	Industry:        "Logistics",
	Location:        "Texas",
	YearsExperience: "5",
}

// bareTruckDriverRequest leaves every optional field blank
var bareTruckDriverRequest = types.AnalysisRequest{JobTitle: "Truck Driver"}

func testConfig(provider, baseURL, apiKey string) *config.Config {
	model := config.DefaultGeminiModel
	if provider == config.ProviderOpenAI {
		model = config.DefaultOpenAIModel
	}
	return &config.Config{
		AI: config.AIConfig{
			Provider:         provider,
			Model:            model,
			BaseURL:          baseURL,
			APIKey:           apiKey,
			Timeout:          5 * time.Second,
			UseSystemPrompts: true,
		},
	}
}
