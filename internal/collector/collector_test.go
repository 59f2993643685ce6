package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/model"
)

// fakeSource serves each subreddit's pages in order, one per call.
type fakeSource struct {
	pages map[string][]*Listing
	errs  map[string]error
	calls map[string][]int // requested limits
}

func (f *fakeSource) Top(_ context.Context, sub, _ string, limit int, _ string) (*Listing, error) {
	if f.calls == nil {
		f.calls = map[string][]int{}
	}
	n := len(f.calls[sub])
	f.calls[sub] = append(f.calls[sub], limit)
	if err, ok := f.errs[sub]; ok {
		return nil, err
	}
	if n >= len(f.pages[sub]) {
		return &Listing{}, nil
	}
	return f.pages[sub][n], nil
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) UpsertPosts(ctx context.Context, posts []model.Post) (int, error) {
	args := m.Called(ctx, posts)
	return args.Int(0), args.Error(1)
}

func newTestCollector(src Source, w PostWriter, opts Options) *Collector {
	c := New(src, w, extract.NewExtractor(extract.DefaultVocabulary()), opts)
	c.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCollect(t *testing.T) {
	src := &fakeSource{pages: map[string][]*Listing{
		"food": {
			{After: "t3_a2", Posts: []RedditPost{
				{ID: "a1", Title: "Homemade Ramen", SelfText: "Check https://x.com **so good**", Score: 50, NumComments: 3, UpvoteRatio: 0.9, CreatedUTC: 1717200000},
				{ID: "a2", Title: "low effort pizza", Score: 2, CreatedUTC: 1717200000},
			}},
			{After: "", Posts: []RedditPost{
				{ID: "a3", Title: "Just dinner", Score: 10, CreatedUTC: 1717100000},
			}},
		},
		"cooking": {
			{Posts: []RedditPost{
				{ID: "a1", Title: "Homemade Ramen crosspost", Score: 80, CreatedUTC: 1717200000},
				{ID: "b1", Title: "Sushi night", Subreddit: "Cooking", Score: 30, CreatedUTC: 1717000000},
			}},
		},
	}}

	w := &mockWriter{}
	w.On("UpsertPosts", mock.Anything, mock.MatchedBy(func(posts []model.Post) bool {
		return len(posts) == 3
	})).Return(3, nil)

	c := newTestCollector(src, w, Options{Subreddits: []string{"food", "cooking"}, PostsPerSubreddit: 10, PageSize: 5, MinScore: 5})
	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Subreddits: 2, Fetched: 5, BelowMinScore: 1, Duplicates: 1, WithMentions: 2, Stored: 3}, res)
	assert.Equal(t, []int{5, 5}, src.calls["food"])

	posts := w.Calls[0].Arguments.Get(1).([]model.Post)
	first := posts[0]
	assert.Equal(t, "a1", first.PostID)
	assert.Equal(t, "food", first.Subreddit) // filled from the request
	assert.Equal(t, "Homemade Ramen", first.Title)
	assert.Equal(t, "check so good", first.CleanedText)
	assert.Equal(t, []string{"ramen"}, first.FoodMentions)
	assert.Equal(t, time.Unix(1717200000, 0).UTC(), first.CreatedUTC)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), first.CollectedAt)

	assert.Equal(t, "a3", posts[1].PostID)
	assert.Equal(t, []string{}, posts[1].FoodMentions)
	assert.Equal(t, "Cooking", posts[2].Subreddit)
	assert.Equal(t, []string{"sushi"}, posts[2].FoodMentions)
}

func TestCollect_IgnoresMentionsInLinks(t *testing.T) {
	src := &fakeSource{pages: map[string][]*Listing{
		"food": {{Posts: []RedditPost{
			{ID: "l1", Title: "Tonight's dinner", SelfText: "recipe: https://example.com/pizza-recipe was great with ramen", Score: 20, CreatedUTC: 1717200000},
			{ID: "l2", Title: "Saved this", SelfText: "www.example.com/best-tacos-ever", Score: 20, CreatedUTC: 1717200000},
		}}},
	}}

	w := &mockWriter{}
	w.On("UpsertPosts", mock.Anything, mock.Anything).Return(2, nil)

	c := newTestCollector(src, w, Options{Subreddits: []string{"food"}, PostsPerSubreddit: 10, PageSize: 10, MinScore: 5})
	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.WithMentions)

	posts := w.Calls[0].Arguments.Get(1).([]model.Post)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"ramen"}, posts[0].FoodMentions)
	assert.Equal(t, []string{}, posts[1].FoodMentions)
}

func TestCollect_StopsAtPostsPerSubreddit(t *testing.T) {
	page := &Listing{After: "more", Posts: []RedditPost{
		{ID: "1", Score: 10, CreatedUTC: 1}, {ID: "2", Score: 10, CreatedUTC: 1},
	}}
	src := &fakeSource{pages: map[string][]*Listing{"food": {page, page, page}}}
	w := &mockWriter{}
	w.On("UpsertPosts", mock.Anything, mock.Anything).Return(2, nil)

	c := newTestCollector(src, w, Options{Subreddits: []string{"food"}, PostsPerSubreddit: 3, PageSize: 2})
	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, src.calls["food"])
	assert.Equal(t, 4, res.Fetched)
}

func TestCollect_SkipsFailedSubreddit(t *testing.T) {
	src := &fakeSource{
		pages: map[string][]*Listing{"food": {{Posts: []RedditPost{{ID: "1", Title: "tacos", Score: 9, CreatedUTC: 1}}}}},
		errs:  map[string]error{"private": errors.New("reddit: unexpected status 403 Forbidden")},
	}
	w := &mockWriter{}
	w.On("UpsertPosts", mock.Anything, mock.Anything).Return(1, nil)

	res, err := newTestCollector(src, w, Options{Subreddits: []string{"private", "food"}}).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Stored)
}

func TestCollect_AllSubredditsFail(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	src := &fakeSource{errs: map[string]error{"food": boom, "cooking": boom}}
	w := &mockWriter{}

	_, err := newTestCollector(src, w, Options{Subreddits: []string{"food", "cooking"}}).Collect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUpstreamUnavailable))
	var se *model.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "collect", se.Stage)
	w.AssertNotCalled(t, "UpsertPosts", mock.Anything, mock.Anything)
}

func TestCollect_StoreError(t *testing.T) {
	src := &fakeSource{pages: map[string][]*Listing{"food": {{Posts: []RedditPost{{ID: "1", Score: 9, CreatedUTC: 1}}}}}}
	w := &mockWriter{}
	w.On("UpsertPosts", mock.Anything, mock.Anything).Return(0, errors.New("disk full"))

	_, err := newTestCollector(src, w, Options{Subreddits: []string{"food"}}).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector: store posts")
}

func TestCollect_NoSubreddits(t *testing.T) {
	_, err := newTestCollector(&fakeSource{}, &mockWriter{}, Options{}).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no subreddits configured")
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{errs: map[string]error{"food": context.Canceled}}

	_, err := newTestCollector(src, &mockWriter{}, Options{Subreddits: []string{"food"}}).Collect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}
