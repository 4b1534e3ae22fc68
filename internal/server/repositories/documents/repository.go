package documents

import (
	"context"
	"encoding/json"

	"github.com/demomiru/minicrm/internal/server/models"
)

// Repository stores JSON documents in per-user trees. Paths are relative to
// the user root ("customers/{id}", "customers/{id}/orders/{id}").
type Repository interface {
	// Set inserts or fully replaces the document at path.
	Set(ctx context.Context, userID, path string, doc json.RawMessage, updatedAt int64) error

	// Patch merges fields into the document at path without replacing it.
	// Returns common.ErrNotFound if no document exists there.
	Patch(ctx context.Context, userID, path string, fields json.RawMessage, updatedAt int64) error

	// Get returns the document at path or common.ErrNotFound.
	Get(ctx context.Context, userID, path string) (json.RawMessage, error)

	// Query returns the non-deleted documents directly under the collection
	// path, ordered by the given top-level field. orderBy must be a plain
	// field name; desc reverses the order.
	Query(ctx context.Context, userID, collection, orderBy string, desc bool) ([]json.RawMessage, error)

	// SetAll applies every write as a full replace. Run it inside a
	// transaction (dbx.WithTx) when the batch must commit atomically.
	SetAll(ctx context.Context, userID string, writes []models.Write, updatedAt int64) error
}
