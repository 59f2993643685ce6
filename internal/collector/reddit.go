// Package collector fetches posts from Reddit's public listing API and
// stores them for the trend pipeline.
package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/resilience"
)

// RedditPost is a listing child as returned by /r/{sub}/top.json.
type RedditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Listing is one page of a subreddit listing.
type Listing struct {
	Posts []RedditPost
	After string // empty on the last page
}

type listingResponse struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string     `json:"kind"`
			Data RedditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Source lists the top posts of a subreddit.
type Source interface {
	Top(ctx context.Context, subreddit, timeFilter string, limit int, after string) (*Listing, error)
}

// RedditClient implements Source over HTTP. Requests share one rate
// limiter; transient failures are retried and repeated failures trip a
// circuit breaker so the remaining subreddits fail fast.
type RedditClient struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	breaker   *resilience.Breaker
}

// NewRedditClient creates a client from the collector configuration.
func NewRedditClient(cfg config.CollectorConfig) *RedditClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimitSecs > 0 {
		limit = rate.Every(time.Duration(cfg.RateLimitSecs * float64(time.Second)))
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "FoodTrendPredictor/1.0"
	}
	return &RedditClient{
		http:      &http.Client{Timeout: timeout},
		baseURL:   cfg.BaseURL,
		userAgent: ua,
		limiter:   rate.NewLimiter(limit, 1),
		retry:     resilience.FromCollectorConfig(cfg),
		breaker:   resilience.NewBreaker(resilience.BreakerFromCollectorConfig(cfg)),
	}
}

// Top fetches one page of /r/{subreddit}/top.json.
func (c *RedditClient) Top(ctx context.Context, subreddit, timeFilter string, limit int, after string) (*Listing, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("t", timeFilter)
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	endpoint := c.baseURL + "/r/" + url.PathEscape(subreddit) + "/top.json?" + q.Encode()

	var listing *Listing
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
			l, err := c.fetch(ctx, endpoint)
			if err != nil {
				return err
			}
			listing = l
			return nil
		})
	})
	if err != nil {
		zap.L().Warn("reddit: listing failed",
			zap.String("subreddit", subreddit),
			zap.Int("consecutive_failures", c.breaker.Failures()),
			zap.Stringer("circuit", c.breaker.State()),
			zap.Error(err),
		)
		return nil, err
	}
	return listing, nil
}

func (c *RedditClient) fetch(ctx context.Context, endpoint string) (*Listing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "reddit: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resilience.StatusError("reddit", resp.StatusCode)
	}

	var body listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "reddit: decode listing")
	}

	listing := &Listing{After: body.Data.After}
	for _, child := range body.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		listing.Posts = append(listing.Posts, child.Data)
	}
	return listing, nil
}
