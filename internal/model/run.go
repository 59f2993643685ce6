package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusEmpty    RunStatus = "empty"
	RunStatusFailed   RunStatus = "failed"
)

// Run records a single batch execution of the trend pipeline.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Stats     RunStats  `json:"stats"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStats holds the per-stage counts of a run.
type RunStats struct {
	PostsLoaded        int     `json:"posts_loaded"`
	PostsSkipped       int     `json:"posts_skipped"`
	Mentions           int     `json:"mentions"`
	ItemsAggregated    int     `json:"items_aggregated"`
	WindowRecords      int     `json:"window_records"`
	ItemsScored        int     `json:"items_scored"`
	TrendingCount      int     `json:"trending_count"`
	Threshold          float64 `json:"threshold"`
	LowSample          bool    `json:"low_sample"`
	PredictionsWritten int     `json:"predictions_written"`
	ScalerVersion      string  `json:"scaler_version,omitempty"`
	ConfigHash         string  `json:"config_hash,omitempty"`
	DurationMs         int64   `json:"duration_ms"`
}

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusEmpty || s == RunStatusFailed
}
