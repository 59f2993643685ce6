// Package scorer ranks items by a composite trend score and labels the top
// of the distribution as trending.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/config"
)

// Config holds the composite weights and labeling parameters.
type Config struct {
	Window           int     // window length scored; other windows are ignored
	VelocityWeight   float64 // weight of the velocity percentile
	GrowthWeight     float64 // weight of the growth-rate percentile
	EngagementWeight float64 // weight of the average-engagement percentile
	Quantile         float64 // composite-score quantile used as the trending threshold
	MinPopulation    int     // below this many items nothing is labeled trending
}

// DefaultConfig returns the reference scoring parameters. Weights sum to 1.
func DefaultConfig() Config {
	return Config{
		Window:           7,
		VelocityWeight:   0.3,
		GrowthWeight:     0.4,
		EngagementWeight: 0.3,
		Quantile:         0.8,
		MinPopulation:    5,
	}
}

// FromFeatureConfig maps the features section of the application config.
func FromFeatureConfig(fc config.FeatureConfig) Config {
	return Config{
		Window:           fc.ScoreWindow,
		VelocityWeight:   fc.VelocityWeight,
		GrowthWeight:     fc.GrowthWeight,
		EngagementWeight: fc.EngagementWeight,
		Quantile:         fc.TrendingQuantile,
		MinPopulation:    fc.MinPopulation,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c Config) float64 {
	return c.VelocityWeight + c.GrowthWeight + c.EngagementWeight
}

// ValidateConfig checks that a Config is internally consistent.
func ValidateConfig(c Config) error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"velocity_weight", c.VelocityWeight},
		{"growth_weight", c.GrowthWeight},
		{"engagement_weight", c.EngagementWeight},
	}
	for _, w := range weights {
		if w.w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	// Allow tolerance for floating-point.
	if sum := WeightSum(c); math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.3f", sum))
	}

	if c.Window <= 0 {
		errs = append(errs, "window must be > 0")
	}
	if c.Quantile < 0 || c.Quantile > 1 {
		errs = append(errs, "quantile must be between 0 and 1")
	}
	if c.MinPopulation < 0 {
		errs = append(errs, "min_population must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
