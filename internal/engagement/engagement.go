// Package engagement derives per-post engagement and calendar features.
package engagement

import (
	"time"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/model"
)

// Weights scale the raw popularity signals of a post.
type Weights struct {
	Score    float64
	Comments float64
	Approval float64
}

// DefaultWeights returns the reference weights (1, 2, 100).
func DefaultWeights() Weights {
	return Weights{Score: 1.0, Comments: 2.0, Approval: 100.0}
}

// WeightsFromConfig converts config values to Weights.
func WeightsFromConfig(c config.EngagementConfig) Weights {
	return Weights{Score: c.ScoreWeight, Comments: c.CommentsWeight, Approval: c.ApprovalWeight}
}

// Compute returns score*w.Score + comments*w.Comments + approval*w.Approval.
func (w Weights) Compute(score, comments int, approval float64) float64 {
	return float64(score)*w.Score + float64(comments)*w.Comments + approval*w.Approval
}

// Tag derives calendar features from ts in UTC. Day of week counts from
// Monday=0.
func Tag(ts time.Time) model.Temporal {
	ts = ts.UTC()
	dow := (int(ts.Weekday()) + 6) % 7
	return model.Temporal{
		DayOfWeek: dow,
		Hour:      ts.Hour(),
		IsWeekend: dow >= 5,
		Month:     int(ts.Month()),
	}
}
