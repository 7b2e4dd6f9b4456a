package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchUpsert_EmptyRows(t *testing.T) {
	n, err := BatchUpsert(context.Background(), nil, UpsertConfig{
		Table:        "countries",
		Columns:      []string{"name", "population"},
		ConflictKeys: []string{"name"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBatchUpsert_NoColumns(t *testing.T) {
	_, err := BatchUpsert(context.Background(), nil, UpsertConfig{
		Table:        "countries",
		ConflictKeys: []string{"name"},
	}, [][]any{{"Wakanda", 1000}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBatchUpsert_NoConflictKeys(t *testing.T) {
	_, err := BatchUpsert(context.Background(), nil, UpsertConfig{
		Table:   "countries",
		Columns: []string{"name", "population"},
	}, [][]any{{"Wakanda", 1000}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBatchUpsert_RowShapeMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = BatchUpsert(context.Background(), mock, UpsertConfig{
		Table:        "countries",
		Columns:      []string{"name", "population"},
		ConflictKeys: []string{"name"},
	}, [][]any{{"Wakanda"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row has 1 values, want 2")
}

func TestBatchUpsert_WritesAllRows(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "countries" .* ON CONFLICT \("name"\) DO UPDATE SET`).
		WithArgs("Wakanda", int64(1000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO "countries" .* ON CONFLICT \("name"\) DO UPDATE SET`).
		WithArgs("Latveria", int64(500000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BatchUpsert(context.Background(), mock, UpsertConfig{
		Table:        "countries",
		Columns:      []string{"name", "population"},
		ConflictKeys: []string{"name"},
	}, [][]any{{"Wakanda", int64(1000)}, {"Latveria", int64(500000)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"name", "capital", "region"})
	assert.Equal(t, `"name", "capital", "region"`, result)
}
