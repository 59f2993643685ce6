// Package monitoring summarizes pipeline run history for the status
// command and the status endpoint.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/store"
)

// maxRuns bounds the run history scanned for one snapshot.
const maxRuns = 1000

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Runs within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsEmpty    int     `json:"runs_empty"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`
	AvgDuration  int64   `json:"avg_duration_ms"`
	AvgItems     float64 `json:"avg_items_scored"`

	// Most recent runs regardless of the window.
	LastRun     *model.Run `json:"last_run,omitempty"`
	LastSuccess *model.Run `json:"last_success,omitempty"`

	PostsStored int `json:"posts_stored"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Runs come back newest first.
	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: maxRuns})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var totalDuration int64
	var totalItems, finished int
	for i := range runs {
		r := runs[i]
		if snap.LastRun == nil {
			snap.LastRun = &r
		}
		if snap.LastSuccess == nil && r.Status == model.RunStatusComplete {
			snap.LastSuccess = &r
		}
		if r.CreatedAt.Before(cutoff) {
			continue
		}

		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusEmpty:
			snap.RunsEmpty++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Status.Terminal() {
			finished++
			totalDuration += r.Stats.DurationMs
			totalItems += r.Stats.ItemsScored
		}
	}

	if finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
		snap.AvgDuration = totalDuration / int64(finished)
		snap.AvgItems = float64(totalItems) / float64(finished)
	}

	posts, err := c.store.CountPosts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count posts")
	}
	snap.PostsStored = posts

	return snap, nil
}
