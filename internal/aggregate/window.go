package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/foodtrend/internal/model"
)

const day = 24 * time.Hour

// Options configures window aggregation.
type Options struct {
	Windows     []int // window lengths in days
	MinMentions int   // lifetime mentions required for an item to be aggregated
	Concurrency int   // items aggregated in parallel; <= 0 means 1
}

// DefaultOptions returns the reference windows and minimum-mention floor.
func DefaultOptions() Options {
	return Options{Windows: []int{7, 14, 30}, MinMentions: 5, Concurrency: 4}
}

// GroupByItem splits a mention stream by item.
func GroupByItem(mentions []model.Mention) map[string][]model.Mention {
	groups := make(map[string][]model.Mention)
	for _, m := range mentions {
		groups[m.Item] = append(groups[m.Item], m)
	}
	return groups
}

// Aggregate computes one WindowMetrics record per (item, window) pair.
// Items below the minimum-mention floor are dropped from every window.
// Each item's windows are anchored at its own latest mention. The result
// is ordered by item, then by window length. An empty result is reported
// as model.ErrEmptyDataset.
func Aggregate(ctx context.Context, mentions []model.Mention, opts Options) ([]model.WindowMetrics, error) {
	if len(mentions) == 0 {
		return nil, &model.StageError{Stage: "aggregate", Err: eris.Wrap(model.ErrEmptyDataset, "no mentions")}
	}

	groups := GroupByItem(mentions)
	items := make([]string, 0, len(groups))
	for item, ms := range groups {
		if len(ms) < opts.MinMentions {
			continue
		}
		items = append(items, item)
	}
	sort.Strings(items)

	zap.L().Debug("aggregate: grouped mentions",
		zap.Int("items", len(groups)),
		zap.Int("qualifying", len(items)),
	)

	windows := append([]int(nil), opts.Windows...)
	sort.Ints(windows)

	results := make([][]model.WindowMetrics, len(items))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ItemWindows(item, groups[item], windows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aggregate: items")
	}

	var out []model.WindowMetrics
	for _, r := range results {
		out = append(out, r...)
	}
	if len(out) == 0 {
		return nil, &model.StageError{Stage: "aggregate", Err: eris.Wrap(model.ErrEmptyDataset, "no item qualified")}
	}
	return out, nil
}

// ItemWindows computes the window records of a single item. Windows with no
// recent mentions are omitted.
func ItemWindows(item string, ms []model.Mention, windows []int) []model.WindowMetrics {
	if len(ms) == 0 {
		return nil
	}
	now := ms[0].CreatedUTC
	for _, m := range ms[1:] {
		if m.CreatedUTC.After(now) {
			now = m.CreatedUTC
		}
	}

	var out []model.WindowMetrics
	for _, w := range windows {
		cutoff := now.Add(-time.Duration(w) * day)
		var recent []model.Mention
		older := 0
		for _, m := range ms {
			if m.CreatedUTC.Before(cutoff) {
				older++
			} else {
				recent = append(recent, m)
			}
		}
		if len(recent) == 0 {
			continue
		}

		wm := summarize(item, w, recent, now)
		wm.Velocity = float64(len(recent)) / float64(w)
		wm.GrowthRate = GrowthRate(len(recent), older)
		out = append(out, wm)
	}
	return out
}

// GrowthRate compares recent and older mention counts. Without an older
// baseline the rate is 1.0.
func GrowthRate(recent, older int) float64 {
	if older == 0 {
		return 1.0
	}
	return float64(recent-older) / float64(max(older, 1))
}

// summarize fills the count, mean, max and distinct-community fields over
// a non-empty mention set.
func summarize(item string, window int, ms []model.Mention, ts time.Time) model.WindowMetrics {
	n := float64(len(ms))
	var sumScore, sumComments, sumEng, sumRatio, weekend float64
	maxScore := float64(ms[0].Score)
	subs := make(map[string]struct{})

	for _, m := range ms {
		s := float64(m.Score)
		sumScore += s
		if s > maxScore {
			maxScore = s
		}
		sumComments += float64(m.NumComments)
		sumEng += m.Engagement
		sumRatio += m.UpvoteRatio
		if m.Temporal.IsWeekend {
			weekend++
		}
		subs[m.Subreddit] = struct{}{}
	}

	return model.WindowMetrics{
		Item:             item,
		WindowDays:       window,
		MentionCount:     len(ms),
		AvgScore:         sumScore / n,
		MaxScore:         maxScore,
		AvgComments:      sumComments / n,
		AvgEngagement:    sumEng / n,
		UniqueSubreddits: len(subs),
		WeekendRatio:     weekend / n,
		AvgUpvoteRatio:   sumRatio / n,
		TotalEngagement:  sumEng,
		Timestamp:        ts,
	}
}
