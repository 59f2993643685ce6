package insight

import (
	"sort"

	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/model"
)

// CategoryTrends summarizes predictions per category. A prediction counts
// as trending when its probability is strictly above trendingAt. Categories
// without predictions are omitted; the result is sorted by average
// probability, highest first.
func CategoryTrends(preds []model.Prediction, cats *extract.Categories, trendingAt float64) []model.CategoryTrend {
	byFood := make(map[string]model.Prediction, len(preds))
	for _, p := range preds {
		if _, ok := byFood[p.Food]; !ok {
			byFood[p.Food] = p
		}
	}

	var out []model.CategoryTrend
	for _, name := range cats.Names() {
		ct := model.CategoryTrend{Category: name}
		var sumP, sumGrowth, top float64
		for _, food := range cats.Members(name) {
			p, ok := byFood[food]
			if !ok {
				continue
			}
			ct.Foods++
			sumP += p.TrendProbability
			sumGrowth += p.GrowthRate
			if p.TrendProbability > trendingAt {
				ct.TrendingCount++
			}
			if ct.TopFood == "" || p.TrendProbability > top {
				ct.TopFood, top = p.Food, p.TrendProbability
			}
		}
		if ct.Foods == 0 {
			continue
		}
		ct.AvgProbability = sumP / float64(ct.Foods)
		ct.GrowthMomentum = sumGrowth / float64(ct.Foods)
		out = append(out, ct)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgProbability > out[j].AvgProbability
	})
	return out
}
