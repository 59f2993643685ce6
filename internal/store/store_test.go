package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/foodtrend/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testPost(id, sub string, score int, created time.Time, mentions ...string) model.Post {
	return model.Post{
		PostID:       id,
		Subreddit:    sub,
		Title:        "title " + id,
		CleanedText:  "cleaned " + id,
		Score:        score,
		NumComments:  3,
		UpvoteRatio:  0.9,
		CreatedUTC:   created,
		FoodMentions: mentions,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("UpsertAndListPosts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.UpsertPosts(ctx, []model.Post{
			testPost("p1", "food", 10, t0, "pizza", "pasta"),
			testPost("p2", "cooking", 3, t0.Add(time.Hour), "ramen"),
			testPost("p3", "food", 50, t0.Add(-48*time.Hour)),
			testPost("p1", "food", 99, t0, "ignored"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		posts, err := s.ListPosts(ctx, PostFilter{})
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "p3", posts[0].PostID)
		assert.Equal(t, "p1", posts[1].PostID)
		assert.Equal(t, 10, posts[1].Score)
		assert.Equal(t, []string{"pizza", "pasta"}, posts[1].FoodMentions)
		assert.True(t, posts[1].CreatedUTC.Equal(t0))
		assert.Empty(t, posts[0].FoodMentions)
		assert.False(t, posts[0].CollectedAt.IsZero())

		count, err := s.CountPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("UpsertPostsOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertPosts(ctx, []model.Post{testPost("p1", "food", 10, t0, "pizza")})
		require.NoError(t, err)
		_, err = s.UpsertPosts(ctx, []model.Post{testPost("p1", "food", 20, t0, "pizza", "tacos")})
		require.NoError(t, err)

		posts, err := s.ListPosts(ctx, PostFilter{})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, 20, posts[0].Score)
		assert.Equal(t, []string{"pizza", "tacos"}, posts[0].FoodMentions)
	})

	t.Run("ListPostsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertPosts(ctx, []model.Post{
			testPost("old", "food", 10, t0.AddDate(0, 0, -40), "pizza"),
			testPost("low", "food", 2, t0, "pizza"),
			testPost("hit", "food", 10, t0, "pizza", "ramen"),
			testPost("miss", "food", 10, t0, "ramen"),
			testPost("near", "food", 10, t0, "pizzas"),
		})
		require.NoError(t, err)

		posts, err := s.ListPosts(ctx, PostFilter{
			Since:      t0.AddDate(0, 0, -30),
			MinScore:   5,
			Mentioning: "pizza",
		})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "hit", posts[0].PostID)

		limited, err := s.ListPosts(ctx, PostFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("Predictions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.UpsertPredictions(ctx, []model.Prediction{
			{Food: "pizza", TrendingScore: 0.9, IsTrending: true, PredictedTrending: true, TrendProbability: 0.85, Velocity: 2, GrowthRate: 0.5, RunID: "r1"},
			{Food: "ramen", TrendingScore: 0.4, TrendProbability: 0.3, Velocity: 1, GrowthRate: -0.2, RunID: "r1"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Re-running overwrites by food.
		_, err = s.UpsertPredictions(ctx, []model.Prediction{
			{Food: "ramen", TrendingScore: 0.95, IsTrending: true, TrendProbability: 0.9, RunID: "r2"},
		})
		require.NoError(t, err)

		preds, err := s.ListPredictions(ctx, 10)
		require.NoError(t, err)
		require.Len(t, preds, 2)
		assert.Equal(t, "ramen", preds[0].Food)
		assert.Equal(t, "r2", preds[0].RunID)
		assert.True(t, preds[0].IsTrending)
		assert.False(t, preds[0].PredictedTrending)
		assert.Equal(t, "pizza", preds[1].Food)
		assert.False(t, preds[1].UpdatedAt.IsZero())

		got, err := s.GetPrediction(ctx, "pizza")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.InDelta(t, 0.85, got.TrendProbability, 1e-9)
		assert.True(t, got.PredictedTrending)

		missing, err := s.GetPrediction(ctx, "durian")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Scaler", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		none, err := s.LatestScaler(ctx)
		require.NoError(t, err)
		assert.Nil(t, none)

		a := model.Scaler{Version: "a", Columns: []string{"x"}, Mean: []float64{1}, Std: []float64{2}, Rows: 3, FittedAt: t0}
		b := model.Scaler{Version: "b", Columns: []string{"x"}, Mean: []float64{5}, Std: []float64{1}, Rows: 4, FittedAt: t0}
		require.NoError(t, s.SaveScaler(ctx, a))
		require.NoError(t, s.SaveScaler(ctx, b))

		latest, err := s.LatestScaler(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "b", latest.Version)
		assert.Equal(t, []float64{5}, latest.Mean)

		// Saving an existing version again makes it the latest.
		require.NoError(t, s.SaveScaler(ctx, a))
		latest, err = s.LatestScaler(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", latest.Version)
	})

	t.Run("Runs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusRunning, got.Status)

		stats := model.RunStats{PostsLoaded: 10, ItemsScored: 4, TrendingCount: 1, ScalerVersion: "v1"}
		require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, stats, ""))

		got, err = s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, stats, got.Stats)

		failed, err := s.CreateRun(ctx)
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, failed.ID, model.RunStatusFailed, model.RunStats{}, "store down"))

		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, runs, 2)

		runs, err = s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "store down", runs[0].Error)

		err = s.CompleteRun(ctx, "missing", model.RunStatusComplete, model.RunStats{}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run not found")

		_, err = s.GetRun(ctx, "missing")
		require.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestDedupePredictionsKeepsLast(t *testing.T) {
	out := dedupePredictions([]model.Prediction{
		{Food: "pizza", TrendProbability: 0.1},
		{Food: "ramen", TrendProbability: 0.2},
		{Food: "pizza", TrendProbability: 0.9},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "pizza", out[0].Food)
	assert.InDelta(t, 0.9, out[0].TrendProbability, 1e-9)
}

func TestDedupePostsKeepsFirst(t *testing.T) {
	out := dedupePosts([]model.Post{
		testPost("a", "food", 1, t0),
		testPost("a", "food", 2, t0),
	})
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Score)
}
