package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/foodtrend/internal/db"
	"github.com/sells-group/foodtrend/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run":     `INSERT INTO pipeline_runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
	"complete_run":   `UPDATE pipeline_runs SET status = $1, stats = $2, error = $3, updated_at = $4 WHERE id = $5`,
	"get_run":        `SELECT id, status, stats, error, created_at, updated_at FROM pipeline_runs WHERE id = $1`,
	"get_prediction": `SELECT ` + predictionColumns + ` FROM food_predictions WHERE food = $1`,
	"latest_scaler":  `SELECT data FROM scaler_artifacts ORDER BY saved_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reddit_posts (
	post_id       TEXT PRIMARY KEY,
	subreddit     TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL DEFAULT '',
	cleaned_text  TEXT NOT NULL DEFAULT '',
	score         INTEGER NOT NULL DEFAULT 0,
	num_comments  INTEGER NOT NULL DEFAULT 0,
	upvote_ratio  DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_utc   TIMESTAMPTZ NOT NULL,
	food_mentions JSONB NOT NULL DEFAULT '[]'::jsonb,
	collected_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reddit_posts_created ON reddit_posts(created_utc);
CREATE INDEX IF NOT EXISTS idx_reddit_posts_subreddit ON reddit_posts(subreddit);
CREATE INDEX IF NOT EXISTS idx_reddit_posts_mentions ON reddit_posts USING GIN (food_mentions);

CREATE TABLE IF NOT EXISTS food_predictions (
	food               TEXT PRIMARY KEY,
	trending_score     DOUBLE PRECISION NOT NULL,
	is_trending        BOOLEAN NOT NULL,
	predicted_trending BOOLEAN NOT NULL,
	trend_probability  DOUBLE PRECISION NOT NULL,
	velocity           DOUBLE PRECISION NOT NULL,
	growth_rate        DOUBLE PRECISION NOT NULL,
	run_id             TEXT NOT NULL DEFAULT '',
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_food_predictions_probability ON food_predictions(trend_probability DESC);

CREATE TABLE IF NOT EXISTS scaler_artifacts (
	version   TEXT PRIMARY KEY,
	data      JSONB NOT NULL,
	rows      INTEGER NOT NULL,
	fitted_at TIMESTAMPTZ NOT NULL,
	saved_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scaler_artifacts_saved ON scaler_artifacts(saved_at DESC);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_created ON pipeline_runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Posts ---

var postColumns = []string{
	"post_id", "subreddit", "title", "body", "cleaned_text", "score", "num_comments",
	"upvote_ratio", "created_utc", "food_mentions", "collected_at",
}

func (s *PostgresStore) UpsertPosts(ctx context.Context, posts []model.Post) (int, error) {
	posts = dedupePosts(posts)
	if len(posts) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(posts))
	for _, p := range posts {
		mentions, err := json.Marshal(mentionsOrEmpty(p.FoodMentions))
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal mentions for %s", p.PostID)
		}
		collected := p.CollectedAt
		if collected.IsZero() {
			collected = now
		}
		rows = append(rows, []any{
			p.PostID, p.Subreddit, p.Title, p.Body, p.CleanedText, p.Score, p.NumComments,
			p.UpvoteRatio, p.CreatedUTC.UTC(), string(mentions), collected.UTC(),
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "reddit_posts",
		Columns:      postColumns,
		ConflictKeys: []string{"post_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert posts")
	}
	return int(n), nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error) {
	query := `SELECT post_id, subreddit, title, body, cleaned_text, score, num_comments, upvote_ratio,
		created_utc, food_mentions, collected_at FROM reddit_posts WHERE true`
	args := []any{}
	argIdx := 1

	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_utc >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	if filter.MinScore != 0 {
		query += fmt.Sprintf(` AND score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	if filter.Mentioning != "" {
		query += fmt.Sprintf(` AND food_mentions @> jsonb_build_array($%d::text)`, argIdx)
		args = append(args, filter.Mentioning)
		argIdx++
	}
	query += ` ORDER BY created_utc ASC, post_id ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list posts")
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		var mentions []byte
		if err := rows.Scan(&p.PostID, &p.Subreddit, &p.Title, &p.Body, &p.CleanedText,
			&p.Score, &p.NumComments, &p.UpvoteRatio, &p.CreatedUTC, &mentions, &p.CollectedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan post")
		}
		if err := json.Unmarshal(mentions, &p.FoodMentions); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal mentions for %s", p.PostID)
		}
		p.CreatedUTC = p.CreatedUTC.UTC()
		posts = append(posts, p)
	}
	return posts, eris.Wrap(rows.Err(), "postgres: list posts iterate")
}

func (s *PostgresStore) CountPosts(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reddit_posts`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count posts")
}

// --- Predictions ---

var predictionUpsertColumns = []string{
	"food", "trending_score", "is_trending", "predicted_trending", "trend_probability",
	"velocity", "growth_rate", "run_id", "updated_at",
}

func (s *PostgresStore) UpsertPredictions(ctx context.Context, preds []model.Prediction) (int, error) {
	preds = dedupePredictions(preds)
	if len(preds) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(preds))
	for _, p := range preds {
		updated := p.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		rows = append(rows, []any{
			p.Food, p.TrendingScore, p.IsTrending, p.PredictedTrending, p.TrendProbability,
			p.Velocity, p.GrowthRate, p.RunID, updated.UTC(),
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "food_predictions",
		Columns:      predictionUpsertColumns,
		ConflictKeys: []string{"food"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert predictions")
	}
	return int(n), nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+predictionColumns+` FROM food_predictions
		 ORDER BY trend_probability DESC, trending_score DESC, food ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list predictions")
	}
	defer rows.Close()

	var preds []model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction")
		}
		preds = append(preds, *p)
	}
	return preds, eris.Wrap(rows.Err(), "postgres: list predictions iterate")
}

func (s *PostgresStore) GetPrediction(ctx context.Context, food string) (*model.Prediction, error) {
	p, err := scanPrediction(s.pool.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM food_predictions WHERE food = $1`,
		food,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, eris.Wrapf(err, "postgres: get prediction %s", food)
}

// --- Scaler artifacts ---

func (s *PostgresStore) SaveScaler(ctx context.Context, sc model.Scaler) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scaler")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scaler_artifacts (version, data, rows, fitted_at, saved_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (version) DO UPDATE SET data = EXCLUDED.data, fitted_at = EXCLUDED.fitted_at, saved_at = EXCLUDED.saved_at`,
		sc.Version, data, sc.Rows, sc.FittedAt.UTC(), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save scaler %s", sc.Version)
}

func (s *PostgresStore) LatestScaler(ctx context.Context) (*model.Scaler, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM scaler_artifacts ORDER BY saved_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest scaler")
	}
	var sc model.Scaler
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal scaler")
	}
	return &sc, nil
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, stats = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), statsJSON, runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPGRun(s.pool.QueryRow(ctx,
		`SELECT id, status, stats, error, created_at, updated_at FROM pipeline_runs WHERE id = $1`,
		runID,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, stats, error, created_at, updated_at FROM pipeline_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPGRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPGRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var statsJSON []byte

	if err := row.Scan(&r.ID, &status, &statsJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "unmarshal run stats")
		}
	}
	return &r, nil
}
