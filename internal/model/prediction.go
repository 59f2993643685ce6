package model

import "time"

// Prediction is the persisted per-item output of a pipeline run. Rows are
// upserted by Food.
type Prediction struct {
	Food              string    `json:"food"`
	TrendingScore     float64   `json:"trending_score"`
	IsTrending        bool      `json:"is_trending"`
	PredictedTrending bool      `json:"predicted_trending"`
	TrendProbability  float64   `json:"trend_probability"`
	Velocity          float64   `json:"velocity"`
	GrowthRate        float64   `json:"growth_rate"`
	RunID             string    `json:"run_id,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RecommendationLevel ranks how strongly an item should be acted on.
type RecommendationLevel string

const (
	LevelHigh    RecommendationLevel = "HIGH"
	LevelMedium  RecommendationLevel = "MEDIUM"
	LevelLow     RecommendationLevel = "LOW"
	LevelMinimal RecommendationLevel = "MINIMAL"
)

// Recommendation is the actionable tier for a trend probability.
type Recommendation struct {
	Level       RecommendationLevel `json:"level"`
	Action      string              `json:"action"`
	Suggestions []string            `json:"suggestions"`
}

// ItemPrediction is the result of an ad-hoc query-by-name evaluation.
type ItemPrediction struct {
	Food             string          `json:"food"`
	Status           string          `json:"status"`
	Message          string          `json:"message,omitempty"`
	TrendProbability float64         `json:"trend_probability"`
	IsTrending       bool            `json:"is_trending"`
	Metrics          *WindowMetrics  `json:"metrics,omitempty"`
	Recommendation   *Recommendation `json:"recommendation,omitempty"`
	ScalerVersion    string          `json:"scaler_version,omitempty"`
}

// Item prediction statuses.
const (
	ItemStatusSuccess = "success"
	ItemStatusNoData  = "no_data"
)

// CategoryTrend summarizes the latest predictions of one food category.
type CategoryTrend struct {
	Category       string  `json:"category"`
	AvgProbability float64 `json:"avg_probability"`
	TrendingCount  int     `json:"trending_count"`
	TopFood        string  `json:"top_food"`
	GrowthMomentum float64 `json:"growth_momentum"`
	Foods          int     `json:"foods"`
}
