package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/foodtrend/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// created_utc is stored as unix seconds so range filters compare integers.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reddit_posts (
	post_id       TEXT PRIMARY KEY,
	subreddit     TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL DEFAULT '',
	cleaned_text  TEXT NOT NULL DEFAULT '',
	score         INTEGER NOT NULL DEFAULT 0,
	num_comments  INTEGER NOT NULL DEFAULT 0,
	upvote_ratio  REAL NOT NULL DEFAULT 0,
	created_utc   INTEGER NOT NULL,
	food_mentions TEXT NOT NULL DEFAULT '[]',
	collected_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS food_predictions (
	food               TEXT PRIMARY KEY,
	trending_score     REAL NOT NULL,
	is_trending        INTEGER NOT NULL,
	predicted_trending INTEGER NOT NULL,
	trend_probability  REAL NOT NULL,
	velocity           REAL NOT NULL,
	growth_rate        REAL NOT NULL,
	run_id             TEXT NOT NULL DEFAULT '',
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scaler_artifacts (
	version   TEXT PRIMARY KEY,
	data      TEXT NOT NULL,
	rows      INTEGER NOT NULL,
	fitted_at DATETIME NOT NULL,
	saved_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reddit_posts_created ON reddit_posts(created_utc);
CREATE INDEX IF NOT EXISTS idx_reddit_posts_subreddit ON reddit_posts(subreddit);
CREATE INDEX IF NOT EXISTS idx_food_predictions_probability ON food_predictions(trend_probability);
CREATE INDEX IF NOT EXISTS idx_scaler_artifacts_saved ON scaler_artifacts(saved_at);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Posts ---

const sqliteUpsertPost = `INSERT INTO reddit_posts
	(post_id, subreddit, title, body, cleaned_text, score, num_comments, upvote_ratio, created_utc, food_mentions, collected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(post_id) DO UPDATE SET
		subreddit = excluded.subreddit,
		title = excluded.title,
		body = excluded.body,
		cleaned_text = excluded.cleaned_text,
		score = excluded.score,
		num_comments = excluded.num_comments,
		upvote_ratio = excluded.upvote_ratio,
		created_utc = excluded.created_utc,
		food_mentions = excluded.food_mentions,
		collected_at = excluded.collected_at`

func (s *SQLiteStore) UpsertPosts(ctx context.Context, posts []model.Post) (int, error) {
	posts = dedupePosts(posts)
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert posts")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertPost)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert posts")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range posts {
		mentions, err := json.Marshal(mentionsOrEmpty(p.FoodMentions))
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal mentions for %s", p.PostID)
		}
		collected := p.CollectedAt
		if collected.IsZero() {
			collected = now
		}
		if _, err := stmt.ExecContext(ctx,
			p.PostID, p.Subreddit, p.Title, p.Body, p.CleanedText,
			p.Score, p.NumComments, p.UpvoteRatio, p.CreatedUTC.UTC().Unix(),
			string(mentions), collected.UTC(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert post %s", p.PostID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert posts")
	}
	return len(posts), nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, error) {
	query := `SELECT post_id, subreddit, title, body, cleaned_text, score, num_comments, upvote_ratio,
		created_utc, food_mentions, collected_at FROM reddit_posts WHERE 1=1`
	var args []any

	if !filter.Since.IsZero() {
		query += ` AND created_utc >= ?`
		args = append(args, filter.Since.UTC().Unix())
	}
	if filter.MinScore != 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	if filter.Mentioning != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(reddit_posts.food_mentions) WHERE json_each.value = ?)`
		args = append(args, filter.Mentioning)
	}
	query += ` ORDER BY created_utc ASC, post_id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list posts")
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, eris.Wrap(rows.Err(), "sqlite: list posts iterate")
}

func (s *SQLiteStore) CountPosts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reddit_posts`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count posts")
}

// --- Predictions ---

const sqliteUpsertPrediction = `INSERT INTO food_predictions
	(food, trending_score, is_trending, predicted_trending, trend_probability, velocity, growth_rate, run_id, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(food) DO UPDATE SET
		trending_score = excluded.trending_score,
		is_trending = excluded.is_trending,
		predicted_trending = excluded.predicted_trending,
		trend_probability = excluded.trend_probability,
		velocity = excluded.velocity,
		growth_rate = excluded.growth_rate,
		run_id = excluded.run_id,
		updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertPredictions(ctx context.Context, preds []model.Prediction) (int, error) {
	preds = dedupePredictions(preds)
	if len(preds) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert predictions")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertPrediction)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert predictions")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range preds {
		updated := p.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		if _, err := stmt.ExecContext(ctx,
			p.Food, p.TrendingScore, p.IsTrending, p.PredictedTrending, p.TrendProbability,
			p.Velocity, p.GrowthRate, p.RunID, updated.UTC(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert prediction %s", p.Food)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert predictions")
	}
	return len(preds), nil
}

const predictionColumns = `food, trending_score, is_trending, predicted_trending, trend_probability,
	velocity, growth_rate, run_id, updated_at`

func (s *SQLiteStore) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+predictionColumns+` FROM food_predictions
		 ORDER BY trend_probability DESC, trending_score DESC, food ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close()

	var preds []model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction")
		}
		preds = append(preds, *p)
	}
	return preds, eris.Wrap(rows.Err(), "sqlite: list predictions iterate")
}

func (s *SQLiteStore) GetPrediction(ctx context.Context, food string) (*model.Prediction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+predictionColumns+` FROM food_predictions WHERE food = ?`,
		food,
	)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, eris.Wrapf(err, "sqlite: get prediction %s", food)
}

// --- Scaler artifacts ---

func (s *SQLiteStore) SaveScaler(ctx context.Context, sc model.Scaler) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scaler")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scaler_artifacts (version, data, rows, fitted_at, saved_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(version) DO UPDATE SET data = excluded.data, fitted_at = excluded.fitted_at, saved_at = excluded.saved_at`,
		sc.Version, string(data), sc.Rows, sc.FittedAt.UTC(), time.Now().UTC().UnixNano(),
	)
	return eris.Wrapf(err, "sqlite: save scaler %s", sc.Version)
}

func (s *SQLiteStore) LatestScaler(ctx context.Context) (*model.Scaler, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM scaler_artifacts ORDER BY saved_at DESC LIMIT 1`,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest scaler")
	}
	var sc model.Scaler
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal scaler")
	}
	return &sc, nil
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, stats = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), string(statsJSON), runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, stats, error, created_at, updated_at FROM pipeline_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, stats, error, created_at, updated_at FROM pipeline_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row scannable) (*model.Post, error) {
	var p model.Post
	var created int64
	var mentions string

	err := row.Scan(&p.PostID, &p.Subreddit, &p.Title, &p.Body, &p.CleanedText,
		&p.Score, &p.NumComments, &p.UpvoteRatio, &created, &mentions, &p.CollectedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan post")
	}
	p.CreatedUTC = time.Unix(created, 0).UTC()
	if err := json.Unmarshal([]byte(mentions), &p.FoodMentions); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal mentions for %s", p.PostID)
	}
	return &p, nil
}

// scanPrediction returns the driver's error unwrapped so callers can match
// their own no-rows sentinel.
func scanPrediction(row scannable) (*model.Prediction, error) {
	var p model.Prediction
	err := row.Scan(&p.Food, &p.TrendingScore, &p.IsTrending, &p.PredictedTrending, &p.TrendProbability,
		&p.Velocity, &p.GrowthRate, &p.RunID, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var statsJSON sql.NullString

	err := row.Scan(&r.ID, &r.Status, &statsJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run stats")
		}
	}
	return &r, nil
}
