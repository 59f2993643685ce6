// Package pipeline orchestrates the batch trend run and the single-item
// prediction query.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/aggregate"
	"github.com/sells-group/foodtrend/internal/classifier"
	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/engagement"
	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/features"
	"github.com/sells-group/foodtrend/internal/insight"
	"github.com/sells-group/foodtrend/internal/model"
	"github.com/sells-group/foodtrend/internal/scorer"
	"github.com/sells-group/foodtrend/internal/store"
)

// Pipeline runs the trend stages against a store and a classifier.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	classifier classifier.Classifier
	flattener  aggregate.Flattener
	aggOpts    aggregate.Options
	scoreCfg   scorer.Config
	thresholds insight.Thresholds
	now        func() time.Time
}

// New creates a Pipeline. extractor tags posts stored without mentions and
// may be nil.
func New(cfg *config.Config, st store.Store, cls classifier.Classifier, extractor *extract.Extractor) *Pipeline {
	aggOpts := aggregate.DefaultOptions()
	if len(cfg.Features.Windows) > 0 {
		aggOpts.Windows = cfg.Features.Windows
	}
	if cfg.Features.MinMentions > 0 {
		aggOpts.MinMentions = cfg.Features.MinMentions
	}
	if cfg.Pipeline.MaxConcurrency > 0 {
		aggOpts.Concurrency = cfg.Pipeline.MaxConcurrency
	}

	return &Pipeline{
		cfg:        cfg,
		store:      st,
		classifier: cls,
		flattener: aggregate.Flattener{
			Weights:   engagement.WeightsFromConfig(cfg.Engagement),
			Extractor: extractor,
		},
		aggOpts:    aggOpts,
		scoreCfg:   scorer.FromFeatureConfig(cfg.Features),
		thresholds: insight.ThresholdsFromConfig(cfg.Thresholds),
		now:        time.Now,
	}
}

// RunOptions selects the posts of a batch run.
type RunOptions struct {
	DaysBack int
	MinScore int
}

// RunResult is the outcome of a batch run.
type RunResult struct {
	RunID       string             `json:"run_id"`
	Status      model.RunStatus    `json:"status"`
	Stats       model.RunStats     `json:"stats"`
	Scores      []model.TrendScore `json:"scores,omitempty"`
	Predictions []model.Prediction `json:"predictions,omitempty"`
}

// Run executes load, flatten, aggregate, score, prepare, classify and
// persist. A run that runs out of data at any stage completes with status
// empty and no error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.DaysBack <= 0 {
		opts.DaysBack = p.cfg.Pipeline.DaysBack
	}
	if opts.DaysBack <= 0 {
		return nil, eris.New("pipeline: days back must be positive")
	}
	if err := scorer.ValidateConfig(p.scoreCfg); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid scoring config")
	}

	start := p.now()
	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, &model.StageError{Stage: "start", Err: eris.Wrapf(model.ErrUpstreamUnavailable, "pipeline: create run: %v", err)}
	}

	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting run",
		zap.Int("days_back", opts.DaysBack),
		zap.Int("min_score", opts.MinScore),
	)

	res := &RunResult{RunID: run.ID}
	res.Stats.ConfigHash = p.cfg.Hash()

	err = p.execute(ctx, log, opts, res)
	res.Stats.DurationMs = p.now().Sub(start).Milliseconds()

	var runErr string
	switch {
	case err == nil:
		res.Status = model.RunStatusComplete
	case errors.Is(err, model.ErrEmptyDataset):
		res.Status = model.RunStatusEmpty
		res.Scores, res.Predictions = nil, nil
		log.Warn("pipeline: run produced no data", zap.Error(err))
	default:
		res.Status = model.RunStatusFailed
		runErr = err.Error()
	}

	// The run record is closed even when ctx was cancelled mid-run.
	if cerr := p.store.CompleteRun(context.WithoutCancel(ctx), run.ID, res.Status, res.Stats, runErr); cerr != nil {
		log.Warn("pipeline: failed to complete run", zap.Error(cerr))
	}

	if res.Status == model.RunStatusFailed {
		log.Error("pipeline: run failed", zap.Error(err))
		return res, err
	}

	log.Info("pipeline: run finished",
		zap.String("status", string(res.Status)),
		zap.Int("items_scored", res.Stats.ItemsScored),
		zap.Int("trending", res.Stats.TrendingCount),
		zap.Int("predictions", res.Stats.PredictionsWritten),
		zap.Int64("duration_ms", res.Stats.DurationMs),
	)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, log *zap.Logger, opts RunOptions, res *RunResult) error {
	stats := &res.Stats

	// 1. Load
	since := p.now().UTC().AddDate(0, 0, -opts.DaysBack)
	posts, err := p.store.ListPosts(ctx, store.PostFilter{Since: since, MinScore: opts.MinScore})
	if err != nil {
		return &model.StageError{Stage: "load", Err: eris.Wrapf(model.ErrUpstreamUnavailable, "list posts: %v", err)}
	}
	stats.PostsLoaded = len(posts)
	if len(posts) == 0 {
		return &model.StageError{Stage: "load", Err: eris.Wrap(model.ErrEmptyDataset, "no posts in range")}
	}

	// 2. Flatten
	flat := p.flattener.Flatten(posts)
	stats.PostsSkipped = flat.Skipped
	stats.Mentions = len(flat.Mentions)
	log.Info("pipeline: flattened posts",
		zap.Int("posts", flat.Posts),
		zap.Int("skipped", flat.Skipped),
		zap.Int("without_items", flat.WithoutItems),
		zap.Int("mentions", len(flat.Mentions)),
	)

	// 3. Aggregate
	metrics, err := aggregate.Aggregate(ctx, flat.Mentions, p.aggOpts)
	if err != nil {
		return err
	}
	stats.WindowRecords = len(metrics)
	stats.ItemsAggregated = countItems(metrics)

	// 4. Score
	scored, err := scorer.Score(metrics, p.scoreCfg)
	if err != nil {
		return err
	}
	stats.ItemsScored = len(scored.Scores)
	stats.TrendingCount = scored.TrendingCount()
	stats.Threshold = scored.Threshold
	stats.LowSample = scored.LowSample
	res.Scores = scored.Scores

	// 5. Prepare
	ds, err := features.Prepare(scored.Scores)
	if err != nil {
		return err
	}
	stats.ScalerVersion = ds.Scaler.Version

	// 6. Classify
	texts := representativeTexts(flat.Mentions)
	inputs := make([]classifier.Input, ds.Len())
	for i, item := range ds.Items {
		text := texts[item]
		if text == "" {
			text = item
		}
		inputs[i] = classifier.Input{Item: item, Features: ds.Matrix[i], Text: text}
	}
	results, err := p.classifier.Classify(ctx, inputs)
	if err != nil {
		return &model.StageError{Stage: "classify", Err: err}
	}
	if len(results) != len(inputs) {
		return &model.StageError{Stage: "classify", Err: eris.Errorf("got %d results for %d items", len(results), len(inputs))}
	}

	// 7. Persist
	updatedAt := p.now().UTC()
	preds := make([]model.Prediction, len(scored.Scores))
	for i, s := range scored.Scores {
		preds[i] = model.Prediction{
			Food:              s.Item,
			TrendingScore:     s.TrendingScore,
			IsTrending:        s.IsTrending,
			PredictedTrending: results[i].Predicted,
			TrendProbability:  results[i].Probability,
			Velocity:          s.Velocity,
			GrowthRate:        s.GrowthRate,
			RunID:             res.RunID,
			UpdatedAt:         updatedAt,
		}
	}

	written, err := p.store.UpsertPredictions(ctx, preds)
	if err != nil {
		return &model.StageError{Stage: "persist", Err: eris.Wrap(err, "upsert predictions")}
	}
	stats.PredictionsWritten = written
	res.Predictions = preds

	if err := p.store.SaveScaler(ctx, ds.Scaler); err != nil {
		return &model.StageError{Stage: "persist", Err: eris.Wrap(err, "save scaler")}
	}
	return nil
}

// representativeTexts picks, per item, the text of its most engaging
// mention.
func representativeTexts(mentions []model.Mention) map[string]string {
	best := make(map[string]model.Mention)
	for _, m := range mentions {
		cur, ok := best[m.Item]
		if !ok || m.Engagement > cur.Engagement {
			best[m.Item] = m
		}
	}
	out := make(map[string]string, len(best))
	for item, m := range best {
		out[item] = m.Text
	}
	return out
}

func countItems(metrics []model.WindowMetrics) int {
	seen := make(map[string]bool)
	for _, m := range metrics {
		seen[m.Item] = true
	}
	return len(seen)
}
