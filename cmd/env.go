package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/classifier"
	"github.com/sells-group/foodtrend/internal/config"
	"github.com/sells-group/foodtrend/internal/extract"
	"github.com/sells-group/foodtrend/internal/pipeline"
	"github.com/sells-group/foodtrend/internal/store"
)

// initStore opens the configured store and applies migrations.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite", "":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "foodtrend.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initExtractor loads the configured vocabulary, falling back to the
// built-in term list.
func initExtractor(c *config.Config) (*extract.Extractor, error) {
	if c.Vocabulary.Path == "" {
		return extract.NewExtractor(extract.DefaultVocabulary()), nil
	}
	vocab, err := extract.LoadVocabulary(c.Vocabulary.Path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded vocabulary",
		zap.String("path", c.Vocabulary.Path),
		zap.Int("terms", vocab.Len()),
		zap.String("version", vocab.Version()),
	)
	return extract.NewExtractor(vocab), nil
}

func initCategories(c *config.Config) *extract.Categories {
	if len(c.Categories) == 0 {
		return extract.NewCategories(config.DefaultCategories())
	}
	return extract.NewCategories(c.Categories)
}

// appEnv holds the components shared by the pipeline commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initPipeline(ctx context.Context, c *config.Config) (*appEnv, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	ext, err := initExtractor(c)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	cls, err := classifier.New(c, nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &appEnv{
		Store:    st,
		Pipeline: pipeline.New(c, st, cls, ext),
	}, nil
}
