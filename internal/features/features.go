// Package features turns scored window metrics into the normalized matrix
// handed to the classifier.
package features

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/model"
)

// Columns is the ordered feature set fed to the classifier.
var Columns = []string{
	"mention_count",
	"avg_score",
	"max_score",
	"avg_comments",
	"avg_engagement",
	"unique_subreddits",
	"weekend_ratio",
	"velocity",
	"growth_rate",
	"avg_upvote_ratio",
	"total_engagement",
}

// Column indexes used by consumers that read single features.
const (
	ColVelocity      = 7
	ColGrowthRate    = 8
	ColAvgEngagement = 4
)

// Dataset is the prepared classifier input for one run. Rows of Matrix,
// Labels and Items are aligned.
type Dataset struct {
	Columns []string
	Items   []string
	Matrix  [][]float64
	Labels  []bool
	Scaler  model.Scaler
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Items) }

// Row extracts the raw feature vector of a metrics record, with NaN and
// infinite values replaced by 0.
func Row(wm model.WindowMetrics) []float64 {
	raw := []float64{
		float64(wm.MentionCount),
		wm.AvgScore,
		wm.MaxScore,
		wm.AvgComments,
		wm.AvgEngagement,
		float64(wm.UniqueSubreddits),
		wm.WeekendRatio,
		wm.Velocity,
		wm.GrowthRate,
		wm.AvgUpvoteRatio,
		wm.TotalEngagement,
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			raw[i] = 0
		}
	}
	return raw
}

// Prepare fits a scaler on the scored batch and returns the normalized
// matrix with its trending labels.
func Prepare(scores []model.TrendScore) (*Dataset, error) {
	if len(scores) == 0 {
		return nil, &model.StageError{Stage: "features", Err: eris.Wrap(model.ErrEmptyDataset, "no scored rows")}
	}

	raw := make([][]float64, len(scores))
	items := make([]string, len(scores))
	labels := make([]bool, len(scores))
	for i, s := range scores {
		raw[i] = Row(s.WindowMetrics)
		items[i] = s.Item
		labels[i] = s.IsTrending
	}

	sc := Fit(Columns, raw)
	matrix := make([][]float64, len(raw))
	for i, r := range raw {
		matrix[i] = apply(sc, r)
	}

	return &Dataset{
		Columns: append([]string(nil), Columns...),
		Items:   items,
		Matrix:  matrix,
		Labels:  labels,
		Scaler:  sc,
	}, nil
}
