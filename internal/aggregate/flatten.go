// Package aggregate turns posts into per-item, per-window metrics.
package aggregate

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/engagement"
	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/model"
)

// Flattener expands posts into one Mention per (item, post) pair.
type Flattener struct {
	Weights engagement.Weights
	// Extractor is used for posts stored without pre-extracted mentions.
	// May be nil.
	Extractor *extract.Extractor
}

// FlattenResult holds the mention stream and per-post accounting.
type FlattenResult struct {
	Mentions     []model.Mention
	Posts        int
	Skipped      int
	WithoutItems int
}

// Flatten validates each post, skipping malformed ones, and emits the
// post's distinct items as mentions carrying engagement and calendar
// features.
func (f Flattener) Flatten(posts []model.Post) FlattenResult {
	res := FlattenResult{Posts: len(posts)}

	for _, p := range posts {
		if err := p.Validate(); err != nil {
			res.Skipped++
			zap.L().Warn("aggregate: skipping malformed post",
				zap.String("post_id", p.PostID),
				zap.Error(err),
			)
			continue
		}

		items := f.items(p)
		if len(items) == 0 {
			res.WithoutItems++
			continue
		}

		eng := f.Weights.Compute(p.Score, p.NumComments, p.UpvoteRatio)
		tmp := engagement.Tag(p.CreatedUTC)
		text := p.Text()
		for _, item := range items {
			res.Mentions = append(res.Mentions, model.Mention{
				Item:        item,
				PostID:      p.PostID,
				Subreddit:   p.Subreddit,
				Score:       p.Score,
				NumComments: p.NumComments,
				UpvoteRatio: p.UpvoteRatio,
				Engagement:  eng,
				CreatedUTC:  p.CreatedUTC.UTC(),
				Temporal:    tmp,
				Text:        text,
			})
		}
	}

	return res
}

func (f Flattener) items(p model.Post) []string {
	raw := p.FoodMentions
	if len(raw) == 0 && f.Extractor != nil {
		raw = f.Extractor.Extract(p.Text())
	}

	seen := make(map[string]bool, len(raw))
	var out []string
	for _, it := range raw {
		it = strings.ToLower(strings.TrimSpace(it))
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
