package model

import "time"

// WindowMetrics aggregates an item's mentions inside one trailing window.
type WindowMetrics struct {
	Item             string    `json:"food"`
	WindowDays       int       `json:"window_days"`
	MentionCount     int       `json:"mention_count"`
	AvgScore         float64   `json:"avg_score"`
	MaxScore         float64   `json:"max_score"`
	AvgComments      float64   `json:"avg_comments"`
	AvgEngagement    float64   `json:"avg_engagement"`
	UniqueSubreddits int       `json:"unique_subreddits"`
	WeekendRatio     float64   `json:"weekend_ratio"`
	Velocity         float64   `json:"velocity"`
	GrowthRate       float64   `json:"growth_rate"`
	AvgUpvoteRatio   float64   `json:"avg_upvote_ratio"`
	TotalEngagement  float64   `json:"total_engagement"`
	Timestamp        time.Time `json:"timestamp"`

	// Placeholder is set on single-item query records whose growth rate and
	// weekend ratio are fixed fallbacks rather than measured values.
	Placeholder bool `json:"placeholder,omitempty"`
}

// TrendScore is a 7-day WindowMetrics record with its percentile ranks,
// composite score and label.
type TrendScore struct {
	WindowMetrics
	VelocityPercentile   float64 `json:"velocity_percentile"`
	GrowthPercentile     float64 `json:"growth_percentile"`
	EngagementPercentile float64 `json:"engagement_percentile"`
	TrendingScore        float64 `json:"trending_score"`
	IsTrending           bool    `json:"is_trending"`
}
