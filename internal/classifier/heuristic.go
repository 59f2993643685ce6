package classifier

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/features"
)

// Heuristic is a fixed logistic model over the scaled velocity, growth and
// engagement columns.
type Heuristic struct {
	Bias             float64
	VelocityWeight   float64
	GrowthWeight     float64
	EngagementWeight float64
}

// NewHeuristic returns the default coefficients. An item at the batch mean
// on every signal scores sigmoid(-1), about 0.27.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		Bias:             -1.0,
		VelocityWeight:   1.0,
		GrowthWeight:     1.2,
		EngagementWeight: 0.8,
	}
}

// Probability scores one scaled feature row.
func (h *Heuristic) Probability(row []float64) float64 {
	z := h.Bias +
		h.VelocityWeight*column(row, features.ColVelocity) +
		h.GrowthWeight*column(row, features.ColGrowthRate) +
		h.EngagementWeight*column(row, features.ColAvgEngagement)
	return 1 / (1 + math.Exp(-z))
}

// Classify implements Classifier.
func (h *Heuristic) Classify(ctx context.Context, inputs []Input) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "classifier: heuristic")
	}
	out := make([]Result, len(inputs))
	for i, in := range inputs {
		out[i] = newResult(in.Item, h.Probability(in.Features))
	}
	return out, nil
}

func column(row []float64, idx int) float64 {
	if idx >= len(row) {
		return 0
	}
	v := row[idx]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
