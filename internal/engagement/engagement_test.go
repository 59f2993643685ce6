package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/model"
)

func TestScore(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name     string
		score    int
		comments int
		approval float64
		want     float64
	}{
		{"zero", 0, 0, 0, 0},
		{"reference", 100, 50, 0.9, 290},
		{"approval only", 0, 0, 1, 100},
		{"negative score", -10, 0, 0.5, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, w.Compute(tt.score, tt.comments, tt.approval), 1e-9)
		})
	}
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(config.EngagementConfig{ScoreWeight: 2, CommentsWeight: 3, ApprovalWeight: 10})
	assert.InDelta(t, 2*5+3*4+10*0.5, w.Compute(5, 4, 0.5), 1e-9)
}

func TestTag(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want model.Temporal
	}{
		{"monday", time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), model.Temporal{DayOfWeek: 0, Hour: 9, Month: 1}},
		{"friday", time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), model.Temporal{DayOfWeek: 4, Hour: 23, Month: 3}},
		{"saturday", time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), model.Temporal{DayOfWeek: 5, Hour: 12, IsWeekend: true, Month: 6}},
		{"sunday", time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC), model.Temporal{DayOfWeek: 6, Hour: 0, IsWeekend: true, Month: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(tt.ts))
		})
	}
}

func TestTagConvertsToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// Sunday 22:00 EST is Monday 03:00 UTC.
	got := Tag(time.Date(2024, 1, 7, 22, 0, 0, 0, est))
	assert.Equal(t, 0, got.DayOfWeek)
	assert.Equal(t, 3, got.Hour)
	assert.False(t, got.IsWeekend)
}
