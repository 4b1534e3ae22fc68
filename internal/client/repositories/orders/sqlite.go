// Package orders provides the client-side persistence layer for Order rows,
// backed by the local SQLite database.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/demomiru/minicrm/internal/client/models"
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

const orderColumns = `id, customer_id, order_title, order_amount, order_date, updated_at, is_deleted, sync_state`

func scanOrder(row interface{ Scan(dest ...any) error }) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.Id, &o.CustomerId, &o.OrderTitle, &o.OrderAmount,
		&o.OrderDate, &o.UpdatedAt, &o.IsDeleted, &o.SyncState)
	return o, err
}

// Upsert inserts an order or replaces the row with the same id.
func (r *SQLiteRepository) Upsert(ctx context.Context, o *models.Order) error {
	query := `INSERT INTO orders (id, customer_id, order_title, order_amount, order_date, updated_at, is_deleted, sync_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET customer_id = excluded.customer_id,
			order_title = excluded.order_title,
			order_amount = excluded.order_amount,
			order_date = excluded.order_date,
			updated_at = excluded.updated_at,
			is_deleted = excluded.is_deleted,
			sync_state = excluded.sync_state
	`
	_, err := r.db.ExecContext(ctx, query,
		o.Id, o.CustomerId, o.OrderTitle, o.OrderAmount, o.OrderDate, o.UpdatedAt, o.IsDeleted, o.SyncState)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

// UpsertAll upserts every order in the slice, in order.
func (r *SQLiteRepository) UpsertAll(ctx context.Context, os []models.Order) error {
	for i := range os {
		if err := r.Upsert(ctx, &os[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetByCustomer lists one customer's non-deleted orders, newest first.
func (r *SQLiteRepository) GetByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id=? AND is_deleted=0 ORDER BY order_date DESC`
	return r.queryOrders(ctx, query, customerID)
}

// GetByID returns a single non-deleted order.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE is_deleted=0 AND id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return &o, nil
}

// Search lists a customer's non-deleted orders matching the substring query
// across title, amount and id.
func (r *SQLiteRepository) Search(ctx context.Context, customerID, query string) ([]models.Order, error) {
	pattern := "%" + query + "%"
	q := `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id=? AND is_deleted=0
		AND (order_title LIKE ? OR CAST(order_amount AS TEXT) LIKE ? OR id LIKE ?)
		ORDER BY order_date DESC`
	return r.queryOrders(ctx, q, customerID, pattern, pattern, pattern)
}

// GetAllPending returns all orders with sync_state=PENDING across customers.
func (r *SQLiteRepository) GetAllPending(ctx context.Context) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE sync_state=?`
	return r.queryOrders(ctx, query, models.SyncStatePending)
}

// GetPendingByCustomer returns one customer's orders with sync_state=PENDING.
func (r *SQLiteRepository) GetPendingByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id=? AND sync_state=?`
	return r.queryOrders(ctx, query, customerID, models.SyncStatePending)
}

// UpdateSyncState narrows the sync_state column for one row. Missing rows are
// tolerated: the update is best-effort by contract.
func (r *SQLiteRepository) UpdateSyncState(ctx context.Context, id string, state models.SyncState) error {
	query := `UPDATE orders SET sync_state=? WHERE id=?`
	if _, err := r.db.ExecContext(ctx, query, state, id); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}

// SoftDelete tombstones a live row and bumps its updated_at.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, timestamp int64) error {
	query := `UPDATE orders SET is_deleted=1, updated_at=? WHERE id=? AND is_deleted=0`
	res, err := r.db.ExecContext(ctx, query, timestamp, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

// PurgeDeleted physically removes tombstoned rows.
func (r *SQLiteRepository) PurgeDeleted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE is_deleted=1`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge orders: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}
	defer rows.Close()

	var result []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
