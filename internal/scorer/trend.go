package scorer

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/model"
)

// Result is the scored population of one run.
type Result struct {
	Scores    []model.TrendScore
	Threshold float64
	// LowSample is set when the population was smaller than the configured
	// minimum and no item was labeled trending.
	LowSample bool
}

// TrendingCount returns the number of items labeled trending.
func (r Result) TrendingCount() int {
	n := 0
	for _, s := range r.Scores {
		if s.IsTrending {
			n++
		}
	}
	return n
}

// Score ranks the records of the configured window across items and labels
// those whose composite score reaches the quantile threshold. Scores are
// returned by descending composite score, ties by item name.
func Score(records []model.WindowMetrics, cfg Config) (Result, error) {
	var rows []model.WindowMetrics
	seen := make(map[string]bool)
	for _, r := range records {
		if r.WindowDays != cfg.Window {
			continue
		}
		if seen[r.Item] {
			return Result{}, &model.StageError{
				Stage: "score",
				ID:    r.Item,
				Err:   eris.Wrapf(model.ErrMalformedRecord, "duplicate %d-day record", cfg.Window),
			}
		}
		seen[r.Item] = true
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return Result{}, &model.StageError{
			Stage: "score",
			Err:   eris.Wrapf(model.ErrEmptyDataset, "no %d-day records", cfg.Window),
		}
	}

	n := len(rows)
	vel := make([]float64, n)
	growth := make([]float64, n)
	eng := make([]float64, n)
	for i, r := range rows {
		vel[i] = finite(r.Velocity)
		growth[i] = finite(r.GrowthRate)
		eng[i] = finite(r.AvgEngagement)
	}
	velPct := PercentileRanks(vel)
	growthPct := PercentileRanks(growth)
	engPct := PercentileRanks(eng)

	scores := make([]model.TrendScore, n)
	composite := make([]float64, n)
	for i, r := range rows {
		composite[i] = cfg.VelocityWeight*velPct[i] +
			cfg.GrowthWeight*growthPct[i] +
			cfg.EngagementWeight*engPct[i]
		scores[i] = model.TrendScore{
			WindowMetrics:        r,
			VelocityPercentile:   velPct[i],
			GrowthPercentile:     growthPct[i],
			EngagementPercentile: engPct[i],
			TrendingScore:        composite[i],
		}
	}

	res := Result{Threshold: Quantile(composite, cfg.Quantile)}
	if n < cfg.MinPopulation {
		res.LowSample = true
		zap.L().Warn("scorer: population below minimum, labeling disabled",
			zap.Int("items", n),
			zap.Int("min_population", cfg.MinPopulation),
		)
	} else {
		for i := range scores {
			scores[i].IsTrending = scores[i].TrendingScore >= res.Threshold
		}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		if scores[a].TrendingScore != scores[b].TrendingScore {
			return scores[a].TrendingScore > scores[b].TrendingScore
		}
		return scores[a].Item < scores[b].Item
	})
	res.Scores = scores
	return res, nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
