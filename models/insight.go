package models

import "strings"

// SpiritualLevel is the categorical trend the model assigns to a set of logs.
type SpiritualLevel string

const (
	LevelImproving  SpiritualLevel = "Improving"
	LevelStable     SpiritualLevel = "Stable"
	LevelNeedsFocus SpiritualLevel = "Needs Focus"
)

// SpiritualLevels lists the accepted levels, in the order given to the model.
var SpiritualLevels = []SpiritualLevel{LevelImproving, LevelStable, LevelNeedsFocus}

// ParseSpiritualLevel matches case-insensitively and reports whether the value was known.
func ParseSpiritualLevel(s string) (SpiritualLevel, bool) {
	s = strings.TrimSpace(s)
	for _, l := range SpiritualLevels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return LevelStable, false
}

// AIInsight is the model's reading of the accumulated logs.
type AIInsight struct {
	Summary        string         `json:"summary"`
	Suggestions    []string       `json:"suggestions"`
	Motivation     string         `json:"motivation"`
	SpiritualLevel SpiritualLevel `json:"spiritualLevel"`
}

// DefaultInsight is shown when analysis fails or returns something unusable.
func DefaultInsight() AIInsight {
	return AIInsight{
		Summary:        "Analysis failed. Keep up your routine!",
		Suggestions:    []string{"Continue logging your daily activities."},
		Motivation:     "Every small step counts towards a better Ramadan.",
		SpiritualLevel: LevelStable,
	}
}

// InsightState is what the insights endpoint returns.
type InsightState struct {
	Insight  *AIInsight `json:"insight"`
	Pending  bool       `json:"pending"`
	Fallback bool       `json:"fallback"`
}
