package collector

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/model"
)

// PostWriter persists collected posts.
type PostWriter interface {
	UpsertPosts(ctx context.Context, posts []model.Post) (int, error)
}

// Options selects what is collected.
type Options struct {
	Subreddits        []string
	TimeFilter        string
	PostsPerSubreddit int
	PageSize          int
	MinScore          int
}

// OptionsFromConfig maps the collector configuration.
func OptionsFromConfig(c config.CollectorConfig) Options {
	return Options{
		Subreddits:        c.Subreddits,
		TimeFilter:        c.TimeFilter,
		PostsPerSubreddit: c.PostsPerSubreddit,
		PageSize:          c.PageSize,
		MinScore:          c.MinScore,
	}
}

// Result reports the counts of one collection.
type Result struct {
	Subreddits    int `json:"subreddits"`
	Failed        int `json:"failed"`
	Fetched       int `json:"fetched"`
	BelowMinScore int `json:"below_min_score"`
	Duplicates    int `json:"duplicates"`
	WithMentions  int `json:"with_mentions"`
	Stored        int `json:"stored"`
}

// Collector pulls listings from a Source and writes posts to a PostWriter.
type Collector struct {
	source    Source
	store     PostWriter
	extractor *extract.Extractor
	opts      Options
	now       func() time.Time
}

// New creates a Collector.
func New(source Source, store PostWriter, extractor *extract.Extractor, opts Options) *Collector {
	if opts.TimeFilter == "" {
		opts.TimeFilter = "month"
	}
	if opts.PageSize <= 0 || opts.PageSize > 100 {
		opts.PageSize = 100
	}
	if opts.PostsPerSubreddit <= 0 {
		opts.PostsPerSubreddit = opts.PageSize
	}
	return &Collector{source: source, store: store, extractor: extractor, opts: opts, now: time.Now}
}

// Collect fetches every configured subreddit, filters and deduplicates the
// posts, tags food mentions and upserts the result. A failing subreddit is
// logged and skipped; when every subreddit fails, the error wraps
// model.ErrUpstreamUnavailable.
func (c *Collector) Collect(ctx context.Context) (Result, error) {
	log := zap.L().With(zap.String("stage", "collect"))
	res := Result{Subreddits: len(c.opts.Subreddits)}
	if len(c.opts.Subreddits) == 0 {
		return res, eris.New("collector: no subreddits configured")
	}

	collectedAt := c.now().UTC()
	seen := make(map[string]bool)
	var posts []model.Post
	var lastErr error

	for _, sub := range c.opts.Subreddits {
		fetched, err := c.collectSubreddit(ctx, sub)
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "collector: collect")
		}
		if err != nil {
			res.Failed++
			lastErr = err
			log.Warn("collector: subreddit failed",
				zap.String("subreddit", sub),
				zap.Int("fetched", len(fetched)),
				zap.Error(err),
			)
		}

		for _, rp := range fetched {
			res.Fetched++
			if rp.Score < c.opts.MinScore {
				res.BelowMinScore++
				continue
			}
			if seen[rp.ID] {
				res.Duplicates++
				continue
			}
			seen[rp.ID] = true

			p := c.toPost(rp, sub, collectedAt)
			if len(p.FoodMentions) > 0 {
				res.WithMentions++
			}
			posts = append(posts, p)
		}
	}

	if res.Failed == res.Subreddits {
		return res, &model.StageError{
			Stage: "collect",
			Err:   eris.Wrapf(model.ErrUpstreamUnavailable, "all %d subreddits failed: %v", res.Failed, lastErr),
		}
	}

	stored, err := c.store.UpsertPosts(ctx, posts)
	if err != nil {
		return res, eris.Wrap(err, "collector: store posts")
	}
	res.Stored = stored

	log.Info("collector: collection complete",
		zap.Int("subreddits", res.Subreddits),
		zap.Int("failed", res.Failed),
		zap.Int("fetched", res.Fetched),
		zap.Int("below_min_score", res.BelowMinScore),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("with_mentions", res.WithMentions),
		zap.Int("stored", res.Stored),
	)
	return res, nil
}

// collectSubreddit pages through one subreddit. Posts fetched before an
// error are returned with it.
func (c *Collector) collectSubreddit(ctx context.Context, sub string) ([]RedditPost, error) {
	var out []RedditPost
	after := ""
	for len(out) < c.opts.PostsPerSubreddit {
		limit := min(c.opts.PageSize, c.opts.PostsPerSubreddit-len(out))
		listing, err := c.source.Top(ctx, sub, c.opts.TimeFilter, limit, after)
		if err != nil {
			return out, eris.Wrapf(err, "collector: list r/%s", sub)
		}
		out = append(out, listing.Posts...)
		if listing.After == "" || len(listing.Posts) == 0 {
			break
		}
		after = listing.After
	}
	zap.L().Debug("collector: fetched subreddit", zap.String("subreddit", sub), zap.Int("posts", len(out)))
	return out, nil
}

func (c *Collector) toPost(rp RedditPost, sub string, collectedAt time.Time) model.Post {
	if rp.Subreddit == "" {
		rp.Subreddit = sub
	}
	p := model.Post{
		PostID:      rp.ID,
		Subreddit:   rp.Subreddit,
		Title:       rp.Title,
		Body:        rp.SelfText,
		CleanedText: extract.CleanText("", rp.SelfText),
		Score:       rp.Score,
		NumComments: rp.NumComments,
		UpvoteRatio: rp.UpvoteRatio,
		CreatedUTC:  time.Unix(int64(rp.CreatedUTC), 0).UTC(),
		CollectedAt: collectedAt,
	}
	if c.extractor != nil {
		p.FoodMentions = c.extractor.Extract(extract.CleanText(rp.Title, rp.SelfText))
	}
	if p.FoodMentions == nil {
		p.FoodMentions = []string{}
	}
	return p
}
