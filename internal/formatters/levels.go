package formatters

import (
	"math"
	"strings"
)

const barWidth = 20

// Verbal bands shown next to scores.
const (
	BandCritical  = "CRITICAL"
	BandAtRisk    = "AT RISK"
	BandResilient = "RESILIENT"

	LevelLow      = "LOW"
	LevelModerate = "MODERATE"
	LevelHigh     = "HIGH"
)

// SurvivalBand labels a 0-10 survival score.
func SurvivalBand(score float64) string {
	switch {
	case score < 4:
		return BandCritical
	case score < 7:
		return BandAtRisk
	default:
		return BandResilient
	}
}

// RiskLevel labels a 0-100 automation or burnout score.
func RiskLevel(score float64) string {
	switch {
	case score < 40:
		return LevelLow
	case score < 70:
		return LevelModerate
	default:
		return LevelHigh
	}
}

// ProgressBar draws value/limit as a fixed-width bar, clamping out of range values.
func ProgressBar(value, limit float64, width int) string {
	if width <= 0 || limit <= 0 {
		return ""
	}
	ratio := math.Min(math.Max(value/limit, 0), 1)
	filled := int(math.Round(ratio * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
