package orders

import (
	"context"

	"github.com/demomiru/minicrm/internal/client/models"
)

// Repository describes the local durable store for Order rows.
// Implementations are backed by the client's SQLite database.
type Repository interface {
	// Upsert inserts an order or replaces an existing row with the same id.
	Upsert(ctx context.Context, o *models.Order) error

	// UpsertAll upserts every given order. Run it inside a transaction
	// (dbx.WithTx) when the batch must be applied atomically.
	UpsertAll(ctx context.Context, os []models.Order) error

	// GetByCustomer returns a customer's non-deleted orders, newest first
	// by order date.
	GetByCustomer(ctx context.Context, customerID string) ([]models.Order, error)

	// GetByID returns a non-deleted order or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Order, error)

	// Search returns a customer's non-deleted orders whose title, amount or
	// id contains the query substring, newest first.
	Search(ctx context.Context, customerID, query string) ([]models.Order, error)

	// GetAllPending returns every order awaiting remote confirmation,
	// across all customers.
	GetAllPending(ctx context.Context) ([]models.Order, error)

	// GetPendingByCustomer returns one customer's orders awaiting remote
	// confirmation.
	GetPendingByCustomer(ctx context.Context, customerID string) ([]models.Order, error)

	// UpdateSyncState narrows a single row's sync state.
	UpdateSyncState(ctx context.Context, id string, state models.SyncState) error

	// SoftDelete sets the tombstone flag and updated_at timestamp.
	// Returns common.ErrNotFound if no live row matched.
	SoftDelete(ctx context.Context, id string, timestamp int64) error

	// PurgeDeleted physically removes tombstoned rows and reports how many
	// were swept.
	PurgeDeleted(ctx context.Context) (int64, error)
}
