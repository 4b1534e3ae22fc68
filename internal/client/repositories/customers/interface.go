package customers

import (
	"context"

	"github.com/demomiru/minicrm/internal/client/models"
)

// Repository describes the local durable store for Customer rows.
// Implementations are backed by the client's SQLite database.
//
// Soft-deleted rows (IsDeleted) are excluded from every read except
// GetAllPending; they are physically removed only by PurgeDeleted.
type Repository interface {
	// Upsert inserts a customer or replaces an existing row with the same id.
	Upsert(ctx context.Context, c *models.Customer) error

	// UpsertAll upserts every given customer. Run it inside a transaction
	// (dbx.WithTx) when the batch must be applied atomically.
	UpsertAll(ctx context.Context, cs []models.Customer) error

	// GetAll returns non-deleted customers, newest first by creation time.
	GetAll(ctx context.Context) ([]models.Customer, error)

	// GetByID returns a non-deleted customer or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Customer, error)

	// GetWithOrders returns a customer together with its non-deleted orders,
	// or common.ErrNotFound if the customer is absent or tombstoned.
	GetWithOrders(ctx context.Context, id string) (*models.CustomerWithOrders, error)

	// Search returns non-deleted customers whose name, email, company or
	// phone contains the query substring, newest first.
	Search(ctx context.Context, query string) ([]models.Customer, error)

	// GetAllPending returns customers awaiting remote confirmation.
	GetAllPending(ctx context.Context) ([]models.Customer, error)

	// UpdateSyncState narrows a single row's sync state without touching
	// any other column.
	UpdateSyncState(ctx context.Context, id string, state models.SyncState) error

	// SoftDelete sets the tombstone flag and updated_at timestamp.
	// Returns common.ErrNotFound if no live row matched.
	SoftDelete(ctx context.Context, id string, timestamp int64) error

	// PurgeDeleted physically removes tombstoned rows and reports how many
	// were swept.
	PurgeDeleted(ctx context.Context) (int64, error)
}
