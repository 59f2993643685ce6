package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "food_predictions",
		Columns:      []string{"food", "trending_score"},
		ConflictKeys: []string{"food"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "food_predictions",
		ConflictKeys: []string{"food"},
	}, [][]any{{"pizza", 0.9}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "food_predictions",
		Columns: []string{"food", "trending_score"},
	}, [][]any{{"pizza", 0.9}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"food", "trending_score", "is_trending"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_food_predictions" \(LIKE "food_predictions" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_food_predictions"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "food_predictions" \("food", "trending_score", "is_trending"\) SELECT .+ ON CONFLICT \("food"\) DO UPDATE SET "trending_score" = EXCLUDED."trending_score", "is_trending" = EXCLUDED."is_trending"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "food_predictions",
		Columns:      cols,
		ConflictKeys: []string{"food"},
	}, [][]any{{"pizza", 0.9, true}, {"ramen", 0.4, false}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_ExplicitUpdateCols(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"post_id", "score", "collected_at"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_reddit_posts"}, cols).WillReturnResult(1)
	mock.ExpectExec(`DO UPDATE SET "score" = EXCLUDED."score"$`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "reddit_posts",
		Columns:      cols,
		ConflictKeys: []string{"post_id"},
		UpdateCols:   []string{"score"},
	}, [][]any{{"a1", 10, "2024-01-01"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_food_predictions"}, []string{"food"}).
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "food_predictions",
		Columns:      []string{"food"},
		ConflictKeys: []string{"food"},
		UpdateCols:   []string{},
	}, [][]any{{"pizza"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for food_predictions")
	assert.Contains(t, err.Error(), "COPY INTO _tmp_upsert_food_predictions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"food_predictions", `"food_predictions"`},
		{"public.food_predictions", `"public"."food_predictions"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"food", "velocity", "growth_rate"})
	assert.Equal(t, `"food", "velocity", "growth_rate"`, result)
}

func TestBulkUpsert_NoUpdateColsDoesNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_scaler_artifacts"}, []string{"version"}).WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT \("version"\) DO NOTHING$`).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "scaler_artifacts",
		Columns:      []string{"version"},
		ConflictKeys: []string{"version"},
	}, [][]any{{"abc"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
