package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/foodtrend/internal/features"
	"github.com/sells-group/foodtrend/pkg/anthropic"
)

const classifySystemPrompt = `You estimate whether food items are about to trend on social media. For each item you get z-scored signals relative to the other items in the batch (velocity: mentions per day, growth: change against the previous period, engagement: average post engagement) and a sample post. Respond with a JSON array only: [{"food": "<item>", "probability": <0.0-1.0>}], one entry per item, using the item names exactly as given.`

const maxTextChars = 280

// LLMConfig tunes the LLM classifier.
type LLMConfig struct {
	Model          string
	MaxTokens      int64
	ChunkSize      int
	MaxConcurrency int
}

// LLM classifies items with the Anthropic Messages API. Items the model
// does not answer for, and chunks whose request fails, are scored by the
// heuristic instead.
type LLM struct {
	client   anthropic.Client
	cfg      LLMConfig
	fallback *Heuristic
}

// NewLLM creates an LLM classifier with defaults filled in.
func NewLLM(client anthropic.Client, cfg LLMConfig) *LLM {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 25
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &LLM{client: client, cfg: cfg, fallback: NewHeuristic()}
}

// Classify implements Classifier.
func (l *LLM) Classify(ctx context.Context, inputs []Input) ([]Result, error) {
	out := make([]Result, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}

	system := anthropic.CachedSystem(classifySystemPrompt, "5m")

	var (
		mu       sync.Mutex
		usage    anthropic.TokenUsage
		fellBack int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.MaxConcurrency)

	for start := 0; start < len(inputs); start += l.cfg.ChunkSize {
		end := min(start+l.cfg.ChunkSize, len(inputs))
		chunk := inputs[start:end]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			probs, u, err := l.classifyChunk(gctx, system, chunk)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("classifier: chunk failed, using heuristic",
					zap.Int("chunk_start", start),
					zap.Int("chunk_size", len(chunk)),
					zap.Error(err),
				)
			}

			missing := 0
			for i, in := range chunk {
				p, ok := probs[normalize(in.Item)]
				if !ok {
					p = l.fallback.Probability(in.Features)
					missing++
				}
				out[start+i] = newResult(in.Item, p)
			}

			mu.Lock()
			usage = usage.Add(u)
			fellBack += missing
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "classifier: classify")
	}

	usage.LogCost(l.cfg.Model, "classify")
	zap.L().Info("classifier: classified items",
		zap.Int("items", len(inputs)),
		zap.Int("heuristic_fallbacks", fellBack),
	)
	return out, nil
}

func (l *LLM) classifyChunk(ctx context.Context, system []anthropic.SystemBlock, chunk []Input) (map[string]float64, anthropic.TokenUsage, error) {
	temp := 0.0
	resp, err := l.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       l.cfg.Model,
		MaxTokens:   l.cfg.MaxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: buildPrompt(chunk)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, anthropic.TokenUsage{}, err
	}

	probs, err := parseProbabilities(resp.Text())
	if err != nil {
		return nil, resp.Usage, err
	}
	return probs, resp.Usage, nil
}

func buildPrompt(chunk []Input) string {
	var b strings.Builder
	b.WriteString("Items:\n")
	for _, in := range chunk {
		text := strings.Join(strings.Fields(in.Text), " ")
		if len(text) > maxTextChars {
			text = text[:maxTextChars]
		}
		fmt.Fprintf(&b, "- %s | velocity=%.2f growth=%.2f engagement=%.2f | post: %s\n",
			in.Item,
			column(in.Features, features.ColVelocity),
			column(in.Features, features.ColGrowthRate),
			column(in.Features, features.ColAvgEngagement),
			text,
		)
	}
	return b.String()
}

func parseProbabilities(text string) (map[string]float64, error) {
	var rows []struct {
		Food        string  `json:"food"`
		Probability float64 `json:"probability"`
	}
	if err := json.Unmarshal([]byte(cleanJSONArray(text)), &rows); err != nil {
		return nil, eris.Wrap(err, "classifier: parse response")
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[normalize(r.Food)] = r.Probability
	}
	return out, nil
}

// cleanJSONArray strips code fences and surrounding prose from a JSON array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func normalize(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}
