package main

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/pipeline"
)

var seedItems = []string{"ramen", "pizza", "tacos", "sushi", "pho", "kimchi"}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	c, err := config.Load()
	require.NoError(t, err)
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "cmd.db")
	c.Classifier.Provider = "heuristic"
	c.Vocabulary.Path = ""
	return c
}

func testEnv(t *testing.T) (*config.Config, *appEnv) {
	t.Helper()
	c := testConfig(t)
	env, err := initPipeline(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return c, env
}

// seedPosts stores 5+k recent posts and k ten-day-old posts for item k.
func seedPosts(t *testing.T, env *appEnv) {
	t.Helper()
	now := time.Now().UTC()
	var posts []model.Post
	for k, item := range seedItems {
		for j := 0; j < 5+k; j++ {
			posts = append(posts, model.Post{
				PostID:       fmt.Sprintf("%s-r%d", item, j),
				Subreddit:    "food",
				Title:        "homemade " + item,
				Score:        10 + 5*k + j,
				NumComments:  3,
				UpvoteRatio:  0.9,
				CreatedUTC:   now.Add(-time.Duration(j+1) * time.Hour),
				FoodMentions: []string{item},
			})
		}
		for j := 0; j < k; j++ {
			posts = append(posts, model.Post{
				PostID:       fmt.Sprintf("%s-o%d", item, j),
				Subreddit:    "cooking",
				Title:        item,
				Score:        20,
				NumComments:  1,
				UpvoteRatio:  0.8,
				CreatedUTC:   now.AddDate(0, 0, -10),
				FoodMentions: []string{item},
			})
		}
	}
	_, err := env.Store.UpsertPosts(context.Background(), posts)
	require.NoError(t, err)
}

func runPipeline(t *testing.T, env *appEnv) *pipeline.RunResult {
	t.Helper()
	res, err := env.Pipeline.Run(context.Background(), pipeline.RunOptions{DaysBack: 90})
	require.NoError(t, err)
	require.Equal(t, model.RunStatusComplete, res.Status)
	return res
}
