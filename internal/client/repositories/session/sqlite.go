// Package session provides the client-side persistence layer for cached
// authentication state (user id, token).
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the value stored under name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT value FROM session WHERE name=?`, name)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("failed to read session value: %w", err)
	}
	return value, nil
}

// Set stores or replaces the value under name.
func (r *SQLiteRepository) Set(ctx context.Context, name, value string) error {
	query := `INSERT INTO session (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to write session value: %w", err)
	}
	return nil
}

// Clear removes all session values.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
