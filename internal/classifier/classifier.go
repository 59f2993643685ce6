// Package classifier turns scaled feature rows into trend probabilities.
// Two implementations exist: an Anthropic-backed LLM classifier and a
// deterministic logistic heuristic used when no API key is configured.
package classifier

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/pkg/anthropic"
)

// DecisionThreshold is the probability at or above which an item is
// predicted to trend.
const DecisionThreshold = 0.5

// Input is one item to classify.
type Input struct {
	Item     string
	Features []float64 // scaled row in features.Columns order
	Text     string    // representative post text
}

// Result is the classification of one item.
type Result struct {
	Item        string  `json:"item"`
	Predicted   bool    `json:"predicted"`
	Probability float64 `json:"probability"`
}

// Classifier assigns trend probabilities. Results are returned in input
// order, one per input.
type Classifier interface {
	Classify(ctx context.Context, inputs []Input) ([]Result, error)
}

// New builds the classifier selected by cfg.Classifier.Provider. A nil
// client is replaced with an SDK client for the configured key.
func New(cfg *config.Config, client anthropic.Client) (Classifier, error) {
	switch cfg.Classifier.Provider {
	case "", "heuristic":
		return NewHeuristic(), nil
	case "anthropic":
		if client == nil {
			if cfg.Anthropic.Key == "" {
				return nil, eris.New("classifier: anthropic.key is required for the anthropic provider")
			}
			client = anthropic.NewClient(cfg.Anthropic.Key)
		}
		return NewLLM(client, LLMConfig{
			Model:          cfg.Anthropic.Model,
			MaxTokens:      cfg.Anthropic.MaxTokens,
			ChunkSize:      cfg.Classifier.ChunkSize,
			MaxConcurrency: cfg.Classifier.MaxConcurrency,
		}), nil
	default:
		return nil, eris.Errorf("classifier: unknown provider %q", cfg.Classifier.Provider)
	}
}

func newResult(item string, p float64) Result {
	p = clamp(p)
	return Result{Item: item, Predicted: p >= DecisionThreshold, Probability: p}
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
