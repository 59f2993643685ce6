// Package store persists posts, predictions, scaler artifacts and pipeline
// runs in SQLite or PostgreSQL.
package store

import (
	"context"
	"time"

	"github.com/sells-group/foodtrend/internal/model"
)

// PostFilter selects posts for a pipeline run or an item query.
type PostFilter struct {
	Since      time.Time `json:"since,omitempty"`      // created_utc >= Since
	MinScore   int       `json:"min_score,omitempty"`  // score >= MinScore
	Mentioning string    `json:"mentioning,omitempty"` // food_mentions contains this item
	Limit      int       `json:"limit,omitempty"`      // 0 = no limit
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the trend pipeline.
type Store interface {
	// Posts
	UpsertPosts(ctx context.Context, posts []model.Post) (int, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error)
	CountPosts(ctx context.Context) (int, error)

	// Predictions
	UpsertPredictions(ctx context.Context, preds []model.Prediction) (int, error)
	ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error)
	GetPrediction(ctx context.Context, food string) (*model.Prediction, error)

	// Scaler artifacts
	SaveScaler(ctx context.Context, sc model.Scaler) error
	LatestScaler(ctx context.Context) (*model.Scaler, error)

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// dedupePosts keeps the first occurrence of every post id.
func dedupePosts(posts []model.Post) []model.Post {
	seen := make(map[string]bool, len(posts))
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if seen[p.PostID] {
			continue
		}
		seen[p.PostID] = true
		out = append(out, p)
	}
	return out
}

// dedupePredictions keeps the last prediction written for every food.
func dedupePredictions(preds []model.Prediction) []model.Prediction {
	idx := make(map[string]int, len(preds))
	var out []model.Prediction
	for _, p := range preds {
		if i, ok := idx[p.Food]; ok {
			out[i] = p
			continue
		}
		idx[p.Food] = len(out)
		out = append(out, p)
	}
	return out
}

func mentionsOrEmpty(m []string) []string {
	if m == nil {
		return []string{}
	}
	return m
}
