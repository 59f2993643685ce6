package insight

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/model"
)

// ReportOptions controls report contents.
type ReportOptions struct {
	TopN          int
	ListLimit     int
	HighPotential float64 // p > HighPotential
	Emerging      float64 // Emerging < p <= HighPotential
	MinGrowth     float64 // growth indicator cut-off
}

// DefaultReportOptions returns the standard report shape.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{TopN: 10, ListLimit: 5, HighPotential: 0.7, Emerging: 0.5, MinGrowth: 0.1}
}

// ReportOptionsFromConfig merges configured values over the defaults.
func ReportOptionsFromConfig(r config.ReportConfig, t config.ThresholdConfig) ReportOptions {
	o := DefaultReportOptions()
	if r.TopN > 0 {
		o.TopN = r.TopN
	}
	if r.ListLimit > 0 {
		o.ListLimit = r.ListLimit
	}
	if t.HighPotential > 0 {
		o.HighPotential = t.HighPotential
	}
	if t.Emerging > 0 {
		o.Emerging = t.Emerging
	}
	if t.MinGrowth > 0 {
		o.MinGrowth = t.MinGrowth
	}
	return o
}

// TopItem is one row of the report's top list.
type TopItem struct {
	Food        string  `json:"food"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Probability float64 `json:"trend_probability"`
	Velocity    float64 `json:"velocity"`
	GrowthRate  float64 `json:"growth_rate"`
	Growing     bool    `json:"growing"`
}

// Report is the insights report over the latest predictions.
type Report struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	Empty              bool                  `json:"empty"`
	Top                []TopItem             `json:"top"`
	Categories         []model.CategoryTrend `json:"categories"`
	HighPotentialCount int                   `json:"high_potential_count"`
	HighPotential      []string              `json:"high_potential"`
	EmergingCount      int                   `json:"emerging_count"`
	Emerging           []string              `json:"emerging"`
	Seasonal           []string              `json:"seasonal"`
}

// BuildReport assembles the report. preds must be ordered by probability,
// highest first, as the store returns them.
func BuildReport(preds []model.Prediction, cats *extract.Categories, opts ReportOptions, now time.Time) Report {
	r := Report{
		GeneratedAt: now,
		Empty:       len(preds) == 0,
		Seasonal:    SeasonalFoods(now.Month()),
	}
	if r.Empty {
		return r
	}

	for i, p := range preds {
		if i < opts.TopN {
			r.Top = append(r.Top, TopItem{
				Food:        p.Food,
				Name:        Title(p.Food),
				Category:    cats.Of(p.Food),
				Probability: p.TrendProbability,
				Velocity:    p.Velocity,
				GrowthRate:  p.GrowthRate,
				Growing:     p.GrowthRate > opts.MinGrowth,
			})
		}
		switch {
		case p.TrendProbability > opts.HighPotential:
			r.HighPotentialCount++
			if len(r.HighPotential) < opts.ListLimit {
				r.HighPotential = append(r.HighPotential, Title(p.Food))
			}
		case p.TrendProbability > opts.Emerging:
			r.EmergingCount++
			if len(r.Emerging) < opts.ListLimit {
				r.Emerging = append(r.Emerging, Title(p.Food))
			}
		}
	}

	r.Categories = CategoryTrends(preds, cats, opts.HighPotential)
	return r
}

var seasonal = map[time.Month][]string{
	time.January:   {"soup", "stew", "hot chocolate"},
	time.February:  {"soup", "stew", "hot chocolate"},
	time.March:     {"salad", "smoothie"},
	time.April:     {"salad", "smoothie"},
	time.May:       {"salad", "smoothie"},
	time.June:      {"ice cream", "popsicle", "bbq"},
	time.July:      {"ice cream", "popsicle", "bbq"},
	time.August:    {"ice cream", "popsicle", "bbq"},
	time.September: {"pumpkin", "apple pie"},
	time.October:   {"pumpkin", "apple pie"},
	time.November:  {"turkey", "stuffing"},
	time.December:  {"cookies", "gingerbread"},
}

// SeasonalFoods returns the foods typically in season for a month.
func SeasonalFoods(m time.Month) []string {
	return append([]string(nil), seasonal[m]...)
}

// Title formats an item name for display ("mac and cheese" -> "Mac And Cheese").
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
