package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/dbx"
	"github.com/demomiru/minicrm/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Set(ctx context.Context, userID, path string, doc json.RawMessage, updatedAt int64) error {
	query :=
		`INSERT INTO documents (user_id, path, doc, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, path) DO UPDATE
		 SET doc = excluded.doc, updated_at = excluded.updated_at
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, path, doc, updatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Patch(ctx context.Context, userID, path string, fields json.RawMessage, updatedAt int64) error {
	query :=
		`UPDATE documents
		 SET doc = doc || $3::jsonb, updated_at = $4
		 WHERE user_id = $1 AND path = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, path, fields, updatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, path string) (json.RawMessage, error) {
	query := `SELECT doc FROM documents WHERE user_id = $1 AND path = $2`

	var doc json.RawMessage
	if err := r.db.QueryRowContext(ctx, query, userID, path).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

// orderByPattern keeps field names safe for interpolation into the ORDER BY
// clause; everything else about the query is parameterized.
var orderByPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

func (r *PostgresRepository) Query(ctx context.Context, userID, collection, orderBy string, desc bool) ([]json.RawMessage, error) {
	if !orderByPattern.MatchString(orderBy) {
		return nil, fmt.Errorf("invalid order field %q", orderBy)
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	// direct children of the collection only, live documents only
	query := fmt.Sprintf(
		`SELECT doc FROM documents
		 WHERE user_id = $1
		   AND path LIKE $2 || '/%%'
		   AND path NOT LIKE $2 || '/%%/%%'
		   AND NOT COALESCE((doc->>'isDeleted')::boolean, false)
		 ORDER BY (doc->>'%s')::numeric %s`, orderBy, dir)

	rows, err := r.db.QueryContext(ctx, query, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc json.RawMessage
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}

func (r *PostgresRepository) SetAll(ctx context.Context, userID string, writes []models.Write, updatedAt int64) error {
	for _, w := range writes {
		if err := r.Set(ctx, userID, w.Path, w.Doc, updatedAt); err != nil {
			return err
		}
	}
	return nil
}
