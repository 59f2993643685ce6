package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/aggregate"
	"github.com/sells-group/foodtrend/internal/classifier"
	"github.com/sells-group/foodtrend/internal/features"
	"github.com/sells-group/foodtrend/internal/insight"
	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/store"
)

// ErrNoScaler is returned by PredictItem before any batch run has saved a
// scaler.
var ErrNoScaler = eris.New("no scaler artifact, run the batch pipeline first")

// PredictItem evaluates one item on demand. Posts mentioning the item in
// the last 2*daysBack days are aggregated into a daysBack-day record,
// scaled with the latest persisted scaler and classified. An item without
// recent mentions returns an error wrapping model.ErrInsufficientHistory.
func (p *Pipeline) PredictItem(ctx context.Context, name string, daysBack int) (*model.ItemPrediction, error) {
	item := strings.ToLower(strings.TrimSpace(name))
	if item == "" {
		return nil, eris.New("pipeline: item name is required")
	}
	if daysBack <= 0 {
		daysBack = p.cfg.Pipeline.QueryDaysBack
	}
	if daysBack <= 0 {
		return nil, eris.New("pipeline: days back must be positive")
	}

	log := zap.L().With(zap.String("item", item), zap.Int("days_back", daysBack))
	asOf := p.now().UTC()

	posts, err := p.store.ListPosts(ctx, store.PostFilter{
		Since:      asOf.AddDate(0, 0, -2*daysBack),
		Mentioning: item,
	})
	if err != nil {
		return nil, &model.StageError{Stage: "query", ID: item, Err: eris.Wrapf(model.ErrUpstreamUnavailable, "list posts: %v", err)}
	}

	var mentions []model.Mention
	for _, m := range p.flattener.Flatten(posts).Mentions {
		if m.Item == item {
			mentions = append(mentions, m)
		}
	}

	wm, err := aggregate.QueryItem(item, mentions, daysBack, asOf)
	if err != nil {
		return nil, err
	}

	sc, err := p.store.LatestScaler(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load scaler")
	}
	if sc == nil {
		return nil, eris.Wrap(ErrNoScaler, "pipeline: predict item")
	}

	row, err := features.Transform(sc, wm)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: scale features")
	}

	text := representativeTexts(mentions)[item]
	if text == "" {
		text = item
	}
	results, err := p.classifier.Classify(ctx, []classifier.Input{{Item: item, Features: row, Text: text}})
	if err != nil {
		return nil, &model.StageError{Stage: "classify", ID: item, Err: err}
	}
	if len(results) != 1 {
		return nil, &model.StageError{Stage: "classify", ID: item, Err: eris.Errorf("got %d results for 1 item", len(results))}
	}

	rec := insight.Recommend(results[0].Probability, p.thresholds)
	log.Info("pipeline: predicted item",
		zap.Int("mentions", wm.MentionCount),
		zap.Float64("probability", results[0].Probability),
		zap.Bool("placeholder", wm.Placeholder),
	)

	return &model.ItemPrediction{
		Food:             item,
		Status:           model.ItemStatusSuccess,
		TrendProbability: results[0].Probability,
		IsTrending:       results[0].Predicted,
		Metrics:          &wm,
		Recommendation:   &rec,
		ScalerVersion:    sc.Version,
	}, nil
}

// NoData is the response for an item without recent mentions.
func NoData(name string) *model.ItemPrediction {
	return &model.ItemPrediction{
		Food:    strings.ToLower(strings.TrimSpace(name)),
		Status:  model.ItemStatusNoData,
		Message: "No recent data found for this food item",
	}
}
