// Package insight turns stored predictions into recommendations, category
// summaries and the insights report.
package insight

import (
	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/model"
)

// Thresholds are the probability cut-offs of the recommendation tiers.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultThresholds returns 0.8 / 0.6 / 0.4.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.6, Low: 0.4}
}

// ThresholdsFromConfig maps the configured cut-offs, keeping defaults for
// unset values.
func ThresholdsFromConfig(c config.ThresholdConfig) Thresholds {
	t := DefaultThresholds()
	if c.High > 0 {
		t.High = c.High
	}
	if c.Medium > 0 {
		t.Medium = c.Medium
	}
	if c.Low > 0 {
		t.Low = c.Low
	}
	return t
}

// Recommend maps a trend probability to its recommendation tier. Each
// threshold is inclusive.
func Recommend(p float64, t Thresholds) model.Recommendation {
	switch {
	case p >= t.High:
		return model.Recommendation{
			Level:  model.LevelHigh,
			Action: "IMMEDIATE ACTION",
			Suggestions: []string{
				"Consider adding to menu immediately",
				"Stock up on ingredients",
				"Create marketing campaign",
				"Monitor competitor offerings",
			},
		}
	case p >= t.Medium:
		return model.Recommendation{
			Level:  model.LevelMedium,
			Action: "MONITOR CLOSELY",
			Suggestions: []string{
				"Add to specials menu",
				"Test with small batch",
				"Gather customer feedback",
				"Track social media mentions",
			},
		}
	case p >= t.Low:
		return model.Recommendation{
			Level:  model.LevelLow,
			Action: "WATCH LIST",
			Suggestions: []string{
				"Keep on radar",
				"Research similar trends",
				"Consider for seasonal menu",
			},
		}
	default:
		return model.Recommendation{
			Level:       model.LevelMinimal,
			Action:      "NO ACTION NEEDED",
			Suggestions: []string{"Standard monitoring only"},
		}
	}
}
