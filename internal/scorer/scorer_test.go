package scorer

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/model"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ValidateConfig(cfg))
	assert.InDelta(t, 1.0, WeightSum(cfg), 1e-9)
}

func TestFromFeatureConfig(t *testing.T) {
	cfg := FromFeatureConfig(config.FeatureConfig{
		ScoreWindow:      14,
		VelocityWeight:   0.5,
		GrowthWeight:     0.25,
		EngagementWeight: 0.25,
		TrendingQuantile: 0.9,
		MinPopulation:    3,
	})
	assert.Equal(t, 14, cfg.Window)
	assert.InDelta(t, 0.9, cfg.Quantile, 1e-9)
	assert.Equal(t, 3, cfg.MinPopulation)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"negative weight", func(c *Config) { c.VelocityWeight = -0.3; c.GrowthWeight = 1.0 }, "velocity_weight must be >= 0"},
		{"sum off", func(c *Config) { c.GrowthWeight = 0.9 }, "weights should sum to 1"},
		{"zero window", func(c *Config) { c.Window = 0 }, "window must be > 0"},
		{"quantile", func(c *Config) { c.Quantile = -0.1 }, "quantile must be between 0 and 1"},
		{"population", func(c *Config) { c.MinPopulation = -1 }, "min_population"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPercentileRanks(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", nil, nil},
		{"single", []float64{3}, []float64{1}},
		{"distinct", []float64{30, 10, 20, 40}, []float64{0.75, 0.25, 0.5, 1}},
		{"ties average", []float64{1, 2, 2, 3}, []float64{0.25, 0.625, 0.625, 1}},
		{"all equal", []float64{5, 5, 5}, []float64{2.0 / 3, 2.0 / 3, 2.0 / 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentileRanks(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(nil, 0.8)))
	assert.InDelta(t, 7.0, Quantile([]float64{7}, 0.8), 1e-9)
	assert.InDelta(t, 4.2, Quantile([]float64{5, 1, 3, 2, 4}, 0.8), 1e-9)
	assert.InDelta(t, 1.0, Quantile([]float64{5, 1, 3, 2, 4}, 0), 1e-9)
	assert.InDelta(t, 5.0, Quantile([]float64{5, 1, 3, 2, 4}, 1), 1e-9)
	assert.InDelta(t, 3.0, Quantile([]float64{5, 1, 3, 2, 4}, 0.5), 1e-9)
}

// ladder builds n 7-day records whose velocity, growth and engagement all
// increase with the item index.
func ladder(n int) []model.WindowMetrics {
	out := make([]model.WindowMetrics, n)
	for i := range out {
		k := float64(i + 1)
		out[i] = model.WindowMetrics{
			Item:          fmt.Sprintf("item%02d", i+1),
			WindowDays:    7,
			MentionCount:  7 * (i + 1),
			Velocity:      k,
			GrowthRate:    k / 10,
			AvgEngagement: 100 * k,
		}
	}
	return out
}

func TestScoreTenItems(t *testing.T) {
	res, err := Score(ladder(10), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Scores, 10)
	assert.False(t, res.LowSample)

	top := res.Scores[0]
	assert.Equal(t, "item10", top.Item)
	assert.InDelta(t, 1.0, top.VelocityPercentile, 1e-9)
	assert.InDelta(t, 1.0, top.TrendingScore, 1e-9)

	bottom := res.Scores[9]
	assert.Equal(t, "item01", bottom.Item)
	assert.InDelta(t, 0.1, bottom.VelocityPercentile, 1e-9)

	// Threshold interpolates between the 8th and 9th scores.
	assert.InDelta(t, 0.82, res.Threshold, 1e-9)
	assert.Equal(t, 2, res.TrendingCount())
	assert.True(t, res.Scores[0].IsTrending)
	assert.True(t, res.Scores[1].IsTrending)
	assert.False(t, res.Scores[2].IsTrending)
}

func TestScoreBoundaryIncluded(t *testing.T) {
	// With 6 items the 0.8 quantile lands exactly on the 5th score.
	res, err := Score(ladder(6), DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 5.0/6, res.Threshold, 1e-9)
	assert.Equal(t, 2, res.TrendingCount())
	assert.Equal(t, "item05", res.Scores[1].Item)
	assert.True(t, res.Scores[1].IsTrending)
}

func TestScoreTrendingFraction(t *testing.T) {
	for _, n := range []int{20, 25, 50, 101} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			res, err := Score(ladder(n), DefaultConfig())
			require.NoError(t, err)
			frac := float64(res.TrendingCount()) / float64(n)
			assert.InDelta(t, 0.2, frac, 0.03)
		})
	}
}

func TestScoreTiesAtBoundary(t *testing.T) {
	rows := ladder(10)
	for i := range rows {
		rows[i].Velocity = 1
		rows[i].GrowthRate = 1
		rows[i].AvgEngagement = 1
	}
	res, err := Score(rows, DefaultConfig())
	require.NoError(t, err)
	// Every score equals the threshold.
	assert.Equal(t, 10, res.TrendingCount())
	// Equal scores fall back to item order.
	assert.Equal(t, "item01", res.Scores[0].Item)
}

func TestScoreLowSample(t *testing.T) {
	res, err := Score(ladder(3), DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.LowSample)
	assert.Zero(t, res.TrendingCount())
	assert.Len(t, res.Scores, 3)
	assert.False(t, math.IsNaN(res.Threshold))

	cfg := DefaultConfig()
	cfg.MinPopulation = 0
	res, err = Score(ladder(1), cfg)
	require.NoError(t, err)
	assert.False(t, res.LowSample)
	assert.Equal(t, 1, res.TrendingCount())
}

func TestScoreIgnoresOtherWindows(t *testing.T) {
	rows := ladder(6)
	other := ladder(6)
	for i := range other {
		other[i].WindowDays = 30
		other[i].Velocity = -other[i].Velocity
	}
	res, err := Score(append(rows, other...), DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, res.Scores, 6)
	for _, s := range res.Scores {
		assert.Equal(t, 7, s.WindowDays)
	}
}

func TestScoreEmpty(t *testing.T) {
	rows := ladder(3)
	for i := range rows {
		rows[i].WindowDays = 14
	}
	_, err := Score(rows, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmptyDataset))
}

func TestScoreDuplicateItem(t *testing.T) {
	rows := ladder(2)
	rows[1].Item = rows[0].Item
	_, err := Score(rows, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMalformedRecord))
	assert.Contains(t, err.Error(), rows[0].Item)
}

func TestScoreNonFiniteTreatedAsZero(t *testing.T) {
	rows := ladder(5)
	rows[4].GrowthRate = math.Inf(1)
	res, err := Score(rows, DefaultConfig())
	require.NoError(t, err)
	for _, s := range res.Scores {
		if s.Item == "item05" {
			assert.InDelta(t, 0.2, s.GrowthPercentile, 1e-9)
		}
	}
}
