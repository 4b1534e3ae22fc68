package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/demomiru/minicrm/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE session (name TEXT PRIMARY KEY, value TEXT NOT NULL);`)
	require.NoError(t, err)

	return db
}

func TestSetGetClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := r.Get(ctx, KeyUserID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, r.Set(ctx, KeyUserID, "uid-1"))
	require.NoError(t, r.Set(ctx, KeyToken, "tok-1"))

	got, err := r.Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got)

	// overwrite
	require.NoError(t, r.Set(ctx, KeyUserID, "uid-2"))
	got, err = r.Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "uid-2", got)

	require.NoError(t, r.Clear(ctx))
	_, err = r.Get(ctx, KeyToken)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
