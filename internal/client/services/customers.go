// Package services contains application services for the MiniCRM client.
// This file defines the sync coordinator: every customer/order operation goes
// to the local store first and mirrors to the remote document store
// opportunistically, so the user is never blocked by connectivity.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/demomiru/minicrm/internal/client/identity"
	"github.com/demomiru/minicrm/internal/client/models"
	"github.com/demomiru/minicrm/internal/client/remote"
	"github.com/demomiru/minicrm/internal/client/repositories/customers"
	"github.com/demomiru/minicrm/internal/client/repositories/orders"
	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/dbx"
	"github.com/demomiru/minicrm/internal/logging"
)

// CustomerService coordinates the local store and the remote document store.
//
// Contract:
//   - Save/Delete write locally first; a local failure is the only error.
//     Remote failures degrade the returned status message instead.
//   - List reads return the local snapshot taken before any repair.
//   - Sync operations require an authenticated identity and commit all
//     pending rows in one atomic remote batch.
//
// All methods must honor context cancellation/timeouts.
type CustomerService interface {
	SaveCustomer(ctx context.Context, c *models.Customer) (string, error)
	GetAllCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	GetCustomerWithOrders(ctx context.Context, id string) (*models.CustomerWithOrders, error)
	DeleteCustomer(ctx context.Context, id string) (string, error)
	SearchCustomers(ctx context.Context, query string) ([]models.Customer, error)
	SyncAllPendingCustomers(ctx context.Context) (string, error)

	SaveOrder(ctx context.Context, o *models.Order) (string, error)
	GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	DeleteOrder(ctx context.Context, customerID, orderID string) (string, error)
	SearchOrdersByCustomer(ctx context.Context, customerID, query string) ([]models.Order, error)
	SyncAllPendingOrders(ctx context.Context, customerID string) (string, error)

	SyncAllPendingData(ctx context.Context) (string, error)
	PurgeDeleted(ctx context.Context) (int64, error)
	GetCustomerStats(customerID string, os []models.Order) models.CustomerStats
}

type customerService struct {
	db       *sql.DB
	store    remote.Store
	identity identity.Provider
	logger   logging.Logger
	now      func() int64
}

// NewCustomerService constructs a CustomerService over the local database,
// the remote store and an identity provider.
func NewCustomerService(db *sql.DB, store remote.Store, id identity.Provider, logger logging.Logger) CustomerService {
	return &customerService{
		db:       db,
		store:    store,
		identity: id,
		logger:   logger.With("service", "customers"),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

func (s *customerService) customerRepo() customers.Repository {
	return customers.NewSQLiteRepository(s.db)
}

func (s *customerService) orderRepo() orders.Repository {
	return orders.NewSQLiteRepository(s.db)
}

// SaveCustomer persists the customer locally as PENDING, then tries to mirror
// it remotely and narrow the local row to SYNCED. The returned status tells
// the user how far the write got.
func (s *customerService) SaveCustomer(ctx context.Context, c *models.Customer) (string, error) {
	c.UpdatedAt = s.now()
	c.SyncState = models.SyncStatePending

	if err := s.customerRepo().Upsert(ctx, c); err != nil {
		s.logger.Error(ctx, "error saving customer", "id", c.Id, "error", err)
		return "", fmt.Errorf("failed to save customer: %w", err)
	}
	s.logger.Debug(ctx, "customer saved to database", "id", c.Id)

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return "Customer saved locally, will sync when authenticated", nil
	}

	synced := *c
	synced.SyncState = models.SyncStateSynced

	if err := s.store.SetCustomer(ctx, userID, synced); err != nil {
		s.logger.Error(ctx, "error syncing customer", "id", c.Id, "error", err)
		return "Customer saved locally, will sync when online", nil
	}

	if err := s.customerRepo().UpdateSyncState(ctx, c.Id, models.SyncStateSynced); err != nil {
		s.logger.Error(ctx, "error updating sync state", "id", c.Id, "error", err)
		return "Customer saved locally, will sync when online", nil
	}
	s.logger.Debug(ctx, "customer synced", "id", c.Id)

	return "Customer saved and synced successfully", nil
}

// GetAllCustomers returns the local snapshot of non-deleted customers. When an
// identity is known it also pulls the remote collection into the local store,
// but the snapshot taken before the repair is what the caller gets.
func (s *customerService) GetAllCustomers(ctx context.Context) ([]models.Customer, error) {
	cs, err := s.customerRepo().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	if userID, ok := s.identity.UserID(ctx); ok {
		if err := s.repairCustomers(ctx, userID); err != nil {
			s.logger.Error(ctx, "error syncing customers from remote", "error", err)
		}
	}

	return cs, nil
}

// repairCustomers pulls the user's non-deleted customer documents and upserts
// them locally as SYNCED, atomically.
func (s *customerService) repairCustomers(ctx context.Context, userID string) error {
	remoteCustomers, err := s.store.QueryCustomers(ctx, userID)
	if err != nil {
		return err
	}
	if len(remoteCustomers) == 0 {
		return nil
	}

	for i := range remoteCustomers {
		remoteCustomers[i].SyncState = models.SyncStateSynced
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return customers.NewSQLiteRepository(tx).UpsertAll(ctx, remoteCustomers)
	})
	if err != nil {
		return err
	}

	s.logger.Debug(ctx, "synced customers from remote", "count", len(remoteCustomers))
	return nil
}

// GetCustomerByID returns one non-deleted customer. The local row is
// required; when an identity is known and a live remote copy exists, the
// remote copy is upserted locally and returned instead.
func (s *customerService) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	c, err := s.customerRepo().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return c, nil
	}

	remoteCustomer, err := s.store.GetCustomer(ctx, userID, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(ctx, "error syncing customer from remote", "id", id, "error", err)
		}
		return c, nil
	}
	if remoteCustomer.IsDeleted {
		return c, nil
	}

	remoteCustomer.SyncState = models.SyncStateSynced
	if err := s.customerRepo().Upsert(ctx, remoteCustomer); err != nil {
		s.logger.Error(ctx, "error caching remote customer", "id", id, "error", err)
		return c, nil
	}

	return remoteCustomer, nil
}

// GetCustomerWithOrders returns a customer joined with its non-deleted
// orders. After a successful best-effort repair of the customer document and
// its order subcollection, the join is re-read so the caller sees the
// repaired rows.
func (s *customerService) GetCustomerWithOrders(ctx context.Context, id string) (*models.CustomerWithOrders, error) {
	cwo, err := s.customerRepo().GetWithOrders(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer details: %w", err)
	}

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return cwo, nil
	}

	if err := s.repairCustomerDoc(ctx, userID, id); err != nil {
		s.logger.Error(ctx, "error syncing customer with orders from remote", "id", id, "error", err)
		return cwo, nil
	}
	if err := s.repairOrders(ctx, userID, id); err != nil {
		s.logger.Error(ctx, "error syncing customer with orders from remote", "id", id, "error", err)
		return cwo, nil
	}

	updated, err := s.customerRepo().GetWithOrders(ctx, id)
	if err != nil {
		return cwo, nil
	}
	return updated, nil
}

func (s *customerService) repairCustomerDoc(ctx context.Context, userID, id string) error {
	remoteCustomer, err := s.store.GetCustomer(ctx, userID, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	if remoteCustomer.IsDeleted {
		return nil
	}
	remoteCustomer.SyncState = models.SyncStateSynced
	return s.customerRepo().Upsert(ctx, remoteCustomer)
}

// DeleteCustomer tombstones the customer locally, then tries to mirror the
// tombstone remotely with a narrow field update.
func (s *customerService) DeleteCustomer(ctx context.Context, id string) (string, error) {
	if err := s.customerRepo().SoftDelete(ctx, id, s.now()); err != nil {
		s.logger.Error(ctx, "error deleting customer", "id", id, "error", err)
		return "", fmt.Errorf("failed to delete customer: %w", err)
	}
	s.logger.Debug(ctx, "customer soft deleted in database", "id", id)

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return "Customer deleted locally, will sync when authenticated", nil
	}

	updates := map[string]any{
		"isDeleted": true,
		"updatedAt": s.now(),
		"syncState": string(models.SyncStateSynced),
	}
	if err := s.store.UpdateCustomer(ctx, userID, id, updates); err != nil {
		s.logger.Error(ctx, "error syncing customer deletion", "id", id, "error", err)
		return "Customer deleted locally, will sync when online", nil
	}

	if err := s.customerRepo().UpdateSyncState(ctx, id, models.SyncStateSynced); err != nil {
		s.logger.Error(ctx, "error updating sync state", "id", id, "error", err)
		return "Customer deleted locally, will sync when online", nil
	}
	s.logger.Debug(ctx, "customer deletion synced", "id", id)

	return "Customer deleted and synced successfully", nil
}

// SearchCustomers is a purely local substring search. A blank query behaves
// like GetAllCustomers without the repair.
func (s *customerService) SearchCustomers(ctx context.Context, query string) ([]models.Customer, error) {
	var cs []models.Customer
	var err error
	if query == "" {
		cs, err = s.customerRepo().GetAll(ctx)
	} else {
		cs, err = s.customerRepo().Search(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return cs, nil
}

// SyncAllPendingCustomers pushes every PENDING customer in one atomic remote
// batch, then narrows the local rows to SYNCED best-effort.
func (s *customerService) SyncAllPendingCustomers(ctx context.Context) (string, error) {
	pending, err := s.customerRepo().GetAllPending(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to sync customers: %w", err)
	}
	if len(pending) == 0 {
		return "No customers to sync", nil
	}

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return "", common.ErrUnauthorized
	}

	now := s.now()
	for i := range pending {
		pending[i].SyncState = models.SyncStateSynced
		pending[i].UpdatedAt = now
	}

	if err := s.store.BatchSetCustomers(ctx, userID, pending); err != nil {
		s.logger.Error(ctx, "error syncing customers", "error", err)
		return "", fmt.Errorf("failed to sync customers: %w", err)
	}

	for _, c := range pending {
		if err := s.customerRepo().UpdateSyncState(ctx, c.Id, models.SyncStateSynced); err != nil {
			s.logger.Error(ctx, "error updating sync state", "id", c.Id, "error", err)
		}
	}

	s.logger.Debug(ctx, "synced customers to remote", "count", len(pending))
	return fmt.Sprintf("%d customers synced successfully", len(pending)), nil
}

// SaveOrder persists the order locally as PENDING, then tries to mirror it
// remotely under its owning customer.
func (s *customerService) SaveOrder(ctx context.Context, o *models.Order) (string, error) {
	o.UpdatedAt = s.now()
	o.SyncState = models.SyncStatePending

	if err := s.orderRepo().Upsert(ctx, o); err != nil {
		s.logger.Error(ctx, "error saving order", "id", o.Id, "error", err)
		return "", fmt.Errorf("failed to save order: %w", err)
	}
	s.logger.Debug(ctx, "order saved to database", "id", o.Id)

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return "Order saved locally, will sync when authenticated", nil
	}

	synced := *o
	synced.SyncState = models.SyncStateSynced

	if err := s.store.SetOrder(ctx, userID, synced); err != nil {
		s.logger.Error(ctx, "error syncing order", "id", o.Id, "error", err)
		return "Order saved locally, will sync when online", nil
	}

	if err := s.orderRepo().UpdateSyncState(ctx, o.Id, models.SyncStateSynced); err != nil {
		s.logger.Error(ctx, "error updating sync state", "id", o.Id, "error", err)
		return "Order saved locally, will sync when online", nil
	}
	s.logger.Debug(ctx, "order synced", "id", o.Id)

	return "Order saved and synced successfully", nil
}

// GetOrdersByCustomer returns the local snapshot of a customer's non-deleted
// orders, repairing from the remote subcollection when an identity is known.
func (s *customerService) GetOrdersByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	os, err := s.orderRepo().GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	if userID, ok := s.identity.UserID(ctx); ok {
		if err := s.repairOrders(ctx, userID, customerID); err != nil {
			s.logger.Error(ctx, "error syncing orders from remote", "customer", customerID, "error", err)
		}
	}

	return os, nil
}

// repairOrders pulls one customer's non-deleted order documents and upserts
// them locally as SYNCED, atomically.
func (s *customerService) repairOrders(ctx context.Context, userID, customerID string) error {
	remoteOrders, err := s.store.QueryOrders(ctx, userID, customerID)
	if err != nil {
		return err
	}
	if len(remoteOrders) == 0 {
		return nil
	}

	for i := range remoteOrders {
		remoteOrders[i].SyncState = models.SyncStateSynced
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return orders.NewSQLiteRepository(tx).UpsertAll(ctx, remoteOrders)
	})
	if err != nil {
		return err
	}

	s.logger.Debug(ctx, "synced orders from remote", "customer", customerID, "count", len(remoteOrders))
	return nil
}

// DeleteOrder tombstones the order locally, then tries to mirror the
// tombstone remotely. The owning customer id locates the remote document.
func (s *customerService) DeleteOrder(ctx context.Context, customerID, orderID string) (string, error) {
	if err := s.orderRepo().SoftDelete(ctx, orderID, s.now()); err != nil {
		s.logger.Error(ctx, "error deleting order", "id", orderID, "error", err)
		return "", fmt.Errorf("failed to delete order: %w", err)
	}
	s.logger.Debug(ctx, "order soft deleted in database", "id", orderID)

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return "Order deleted locally, will sync when authenticated", nil
	}

	updates := map[string]any{
		"isDeleted": true,
		"updatedAt": s.now(),
		"syncState": string(models.SyncStateSynced),
	}
	if err := s.store.UpdateOrder(ctx, userID, customerID, orderID, updates); err != nil {
		s.logger.Error(ctx, "error syncing order deletion", "id", orderID, "error", err)
		return "Order deleted locally, will sync when online", nil
	}

	if err := s.orderRepo().UpdateSyncState(ctx, orderID, models.SyncStateSynced); err != nil {
		s.logger.Error(ctx, "error updating sync state", "id", orderID, "error", err)
		return "Order deleted locally, will sync when online", nil
	}
	s.logger.Debug(ctx, "order deletion synced", "id", orderID)

	return "Order deleted and synced successfully", nil
}

// SearchOrdersByCustomer is a purely local substring search over one
// customer's orders. A blank query returns them all.
func (s *customerService) SearchOrdersByCustomer(ctx context.Context, customerID, query string) ([]models.Order, error) {
	var os []models.Order
	var err error
	if query == "" {
		os, err = s.orderRepo().GetByCustomer(ctx, customerID)
	} else {
		os, err = s.orderRepo().Search(ctx, customerID, query)
	}
	if err != nil {
		return nil, fmt.Errorf("order search failed: %w", err)
	}
	return os, nil
}

// SyncAllPendingOrders pushes one customer's PENDING orders in one atomic
// remote batch, then narrows the local rows to SYNCED best-effort.
func (s *customerService) SyncAllPendingOrders(ctx context.Context, customerID string) (string, error) {
	pending, err := s.orderRepo().GetPendingByCustomer(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to sync orders: %w", err)
	}
	if len(pending) == 0 {
		return "No orders to sync", nil
	}

	userID, ok := s.identity.UserID(ctx)
	if !ok {
		return "", common.ErrUnauthorized
	}

	now := s.now()
	for i := range pending {
		pending[i].SyncState = models.SyncStateSynced
		pending[i].UpdatedAt = now
	}

	if err := s.store.BatchSetOrders(ctx, userID, customerID, pending); err != nil {
		s.logger.Error(ctx, "error syncing orders", "customer", customerID, "error", err)
		return "", fmt.Errorf("failed to sync orders: %w", err)
	}

	for _, o := range pending {
		if err := s.orderRepo().UpdateSyncState(ctx, o.Id, models.SyncStateSynced); err != nil {
			s.logger.Error(ctx, "error updating sync state", "id", o.Id, "error", err)
		}
	}

	s.logger.Debug(ctx, "synced orders to remote", "customer", customerID, "count", len(pending))
	return fmt.Sprintf("%d orders synced successfully", len(pending)), nil
}

// SyncAllPendingData syncs customers first, then the pending orders of every
// customer that has any. It succeeds only when every part succeeds.
func (s *customerService) SyncAllPendingData(ctx context.Context) (string, error) {
	_, customerErr := s.SyncAllPendingCustomers(ctx)

	pendingOrders, err := s.orderRepo().GetAllPending(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to sync all data: %w", err)
	}

	seen := make(map[string]struct{})
	var orderErr error
	for _, o := range pendingOrders {
		if _, ok := seen[o.CustomerId]; ok {
			continue
		}
		seen[o.CustomerId] = struct{}{}
		if _, err := s.SyncAllPendingOrders(ctx, o.CustomerId); err != nil && orderErr == nil {
			orderErr = err
		}
	}

	if customerErr != nil || orderErr != nil {
		return "", errors.New("some data failed to sync")
	}
	return "All data synced successfully", nil
}

// PurgeDeleted physically removes tombstoned customers and orders from the
// local store and reports the total swept.
func (s *customerService) PurgeDeleted(ctx context.Context) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := orders.NewSQLiteRepository(tx).PurgeDeleted(ctx)
		if err != nil {
			return err
		}
		total += n
		n, err = customers.NewSQLiteRepository(tx).PurgeDeleted(ctx)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted rows: %w", err)
	}
	return total, nil
}

// GetCustomerStats aggregates one customer's orders in memory.
func (s *customerService) GetCustomerStats(customerID string, os []models.Order) models.CustomerStats {
	var stats models.CustomerStats
	for _, o := range os {
		if o.CustomerId != customerID {
			continue
		}
		stats.OrderCount++
		stats.TotalSpent += o.OrderAmount
		if stats.LastOrderDate == nil || o.OrderDate > *stats.LastOrderDate {
			d := o.OrderDate
			stats.LastOrderDate = &d
		}
	}
	return stats
}
