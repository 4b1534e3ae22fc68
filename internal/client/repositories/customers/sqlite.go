// Package customers provides the client-side persistence layer for Customer
// rows, backed by the local SQLite database.
package customers

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

const customerColumns = `id, name, email, phone, company, created_at, updated_at, is_deleted, sync_state`

func scanCustomer(row interface{ Scan(dest ...any) error }) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.Id, &c.Name, &c.Email, &c.Phone, &c.Company,
		&c.CreatedAt, &c.UpdatedAt, &c.IsDeleted, &c.SyncState)
	return c, err
}

// Upsert inserts a customer or replaces the row with the same id.
func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Customer) error {
	query := `INSERT INTO customers (id, name, email, phone, company, created_at, updated_at, is_deleted, sync_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			company = excluded.company,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_deleted = excluded.is_deleted,
			sync_state = excluded.sync_state
	`
	_, err := r.db.ExecContext(ctx, query,
		c.Id, c.Name, c.Email, c.Phone, c.Company, c.CreatedAt, c.UpdatedAt, c.IsDeleted, c.SyncState)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

// UpsertAll upserts every customer in the slice, in order.
func (r *SQLiteRepository) UpsertAll(ctx context.Context, cs []models.Customer) error {
	for i := range cs {
		if err := r.Upsert(ctx, &cs[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetAll lists all non-deleted customers, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE is_deleted=0 ORDER BY created_at DESC`
	return r.queryCustomers(ctx, query)
}

// GetByID returns a single non-deleted customer.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE is_deleted=0 AND id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return &c, nil
}

// GetWithOrders joins a non-deleted customer with its non-deleted orders,
// newest orders first.
func (r *SQLiteRepository) GetWithOrders(ctx context.Context, id string) (*models.CustomerWithOrders, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, customer_id, order_title, order_amount, order_date, updated_at, is_deleted, sync_state
		FROM orders WHERE customer_id=? AND is_deleted=0 ORDER BY order_date DESC`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}
	defer rows.Close()

	result := &models.CustomerWithOrders{Customer: *c}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.Id, &o.CustomerId, &o.OrderTitle, &o.OrderAmount,
			&o.OrderDate, &o.UpdatedAt, &o.IsDeleted, &o.SyncState); err != nil {
			return nil, err
		}
		result.Orders = append(result.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Search lists non-deleted customers matching the substring query across
// name, email, company and phone.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]models.Customer, error) {
	pattern := "%" + query + "%"
	q := `SELECT ` + customerColumns + ` FROM customers
		WHERE is_deleted=0
		AND (name LIKE ? OR email LIKE ? OR company LIKE ? OR phone LIKE ?)
		ORDER BY created_at DESC`
	return r.queryCustomers(ctx, q, pattern, pattern, pattern, pattern)
}

// GetAllPending returns customers with sync_state=PENDING, tombstoned ones
// included so deletions can be propagated.
func (r *SQLiteRepository) GetAllPending(ctx context.Context) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE sync_state=?`
	return r.queryCustomers(ctx, query, models.SyncStatePending)
}

// UpdateSyncState narrows the sync_state column for one row. Missing rows are
// tolerated: the update is best-effort by contract.
func (r *SQLiteRepository) UpdateSyncState(ctx context.Context, id string, state models.SyncState) error {
	query := `UPDATE customers SET sync_state=? WHERE id=?`
	if _, err := r.db.ExecContext(ctx, query, state, id); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}

// SoftDelete tombstones a live row and bumps its updated_at.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, timestamp int64) error {
	query := `UPDATE customers SET is_deleted=1, updated_at=? WHERE id=? AND is_deleted=0`
	res, err := r.db.ExecContext(ctx, query, timestamp, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE is_deleted=1`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge customers: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) queryCustomers(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select customers: %w", err)
	}
	defer rows.Close()

	var result []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
