package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/demomiru/minicrm/internal/client/models"
	"github.com/demomiru/minicrm/internal/client/remote"
	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL DEFAULT 0,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  sync_state TEXT NOT NULL DEFAULT 'PENDING'
);
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  order_title TEXT NOT NULL DEFAULT '',
  order_amount REAL NOT NULL DEFAULT 0,
  order_date INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL DEFAULT 0,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  sync_state TEXT NOT NULL DEFAULT 'PENDING'
);
`)
	require.NoError(t, err)

	return db
}

// fakeIdentity yields a fixed user id, or none.
type fakeIdentity struct {
	userID string
}

func (f *fakeIdentity) UserID(ctx context.Context) (string, bool) {
	return f.userID, f.userID != ""
}

func (f *fakeIdentity) Token(ctx context.Context) (string, error) {
	if f.userID == "" {
		return "", common.ErrNotFound
	}
	return "token", nil
}

// fakeStore records calls and fails on demand.
type fakeStore struct {
	err error

	customers map[string]models.Customer
	orders    map[string][]models.Order

	setCustomerCalls   int
	batchCustomerCalls int
	batchOrderCalls    int
	updatedCustomers   []string
	updatedOrders      []string
}

var _ remote.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[string]models.Customer),
		orders:    make(map[string][]models.Order),
	}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Ping(ctx context.Context) error { return f.err }

func (f *fakeStore) Register(ctx context.Context, login, password string) error { return f.err }

func (f *fakeStore) Login(ctx context.Context, login, password string) (string, string, error) {
	return "uid", "token", f.err
}

func (f *fakeStore) SetCustomer(ctx context.Context, userID string, c models.Customer) error {
	if f.err != nil {
		return f.err
	}
	f.setCustomerCalls++
	f.customers[c.Id] = c
	return nil
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, userID, customerID string, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.updatedCustomers = append(f.updatedCustomers, customerID)
	return nil
}

func (f *fakeStore) GetCustomer(ctx context.Context, userID, customerID string) (*models.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.customers[customerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) QueryCustomers(ctx context.Context, userID string) ([]models.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	var cs []models.Customer
	for _, c := range f.customers {
		if !c.IsDeleted {
			cs = append(cs, c)
		}
	}
	return cs, nil
}

func (f *fakeStore) SetOrder(ctx context.Context, userID string, o models.Order) error {
	if f.err != nil {
		return f.err
	}
	f.orders[o.CustomerId] = append(f.orders[o.CustomerId], o)
	return nil
}

func (f *fakeStore) UpdateOrder(ctx context.Context, userID, customerID, orderID string, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.updatedOrders = append(f.updatedOrders, orderID)
	return nil
}

func (f *fakeStore) QueryOrders(ctx context.Context, userID, customerID string) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var os []models.Order
	for _, o := range f.orders[customerID] {
		if !o.IsDeleted {
			os = append(os, o)
		}
	}
	return os, nil
}

func (f *fakeStore) BatchSetCustomers(ctx context.Context, userID string, cs []models.Customer) error {
	if f.err != nil {
		return f.err
	}
	f.batchCustomerCalls++
	for _, c := range cs {
		f.customers[c.Id] = c
	}
	return nil
}

func (f *fakeStore) BatchSetOrders(ctx context.Context, userID, customerID string, os []models.Order) error {
	if f.err != nil {
		return f.err
	}
	f.batchOrderCalls++
	f.orders[customerID] = append(f.orders[customerID], os...)
	return nil
}

func newTestService(t *testing.T, store *fakeStore, userID string) (*customerService, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewCustomerService(db, store, &fakeIdentity{userID: userID}, logger).(*customerService)
	svc.now = func() int64 { return 1000 }
	return svc, db
}

func localSyncState(t *testing.T, db *sql.DB, table, id string) string {
	t.Helper()
	var state string
	require.NoError(t, db.QueryRow("SELECT sync_state FROM "+table+" WHERE id = ?", id).Scan(&state))
	return state
}

func TestSaveCustomer_SavedAndSynced(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	c := &models.Customer{Id: "c1", Name: "Alice", CreatedAt: 1}
	msg, err := svc.SaveCustomer(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "Customer saved and synced successfully", msg)

	assert.Equal(t, models.SyncStateSynced, store.customers["c1"].SyncState)
	assert.Equal(t, "SYNCED", localSyncState(t, db, "customers", "c1"))
	assert.Equal(t, int64(1000), c.UpdatedAt)
}

func TestSaveCustomer_OfflineNeverFails(t *testing.T) {
	store := newFakeStore()
	store.err = common.ErrUnavailable
	svc, db := newTestService(t, store, "uid")

	msg, err := svc.SaveCustomer(context.Background(), &models.Customer{Id: "c1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Customer saved locally, will sync when online", msg)
	assert.Equal(t, "PENDING", localSyncState(t, db, "customers", "c1"))
}

func TestSaveCustomer_Unauthenticated(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "")

	msg, err := svc.SaveCustomer(context.Background(), &models.Customer{Id: "c1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Customer saved locally, will sync when authenticated", msg)
	assert.Equal(t, "PENDING", localSyncState(t, db, "customers", "c1"))
	assert.Zero(t, store.setCustomerCalls)
}

func TestSaveCustomer_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, "uid")

	c := &models.Customer{Id: "c1", Name: "Alice"}
	_, err := svc.SaveCustomer(context.Background(), c)
	require.NoError(t, err)

	c.Name = "Alice B"
	msg, err := svc.SaveCustomer(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "Customer saved and synced successfully", msg)

	all, err := svc.GetAllCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice B", all[0].Name)
}

func TestDeleteCustomer_TombstoneInvisible(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, "uid")

	_, err := svc.SaveCustomer(context.Background(), &models.Customer{Id: "c1", Name: "Alice"})
	require.NoError(t, err)

	msg, err := svc.DeleteCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Customer deleted and synced successfully", msg)
	assert.Equal(t, []string{"c1"}, store.updatedCustomers)

	_, err = svc.GetCustomerByID(context.Background(), "c1")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	// store has the remote copy; the local tombstone still wins for reads
	all, err := svc.SearchCustomers(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteCustomer_MissingRowIsHardError(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, "uid")

	_, err := svc.DeleteCustomer(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete customer")
}

func TestGetAllCustomers_ReturnsPreRepairSnapshot(t *testing.T) {
	store := newFakeStore()
	store.customers["c9"] = models.Customer{Id: "c9", Name: "Remote", CreatedAt: 9}
	svc, _ := newTestService(t, store, "uid")

	// first read sees only local rows (none) but repairs the remote doc in
	first, err := svc.GetAllCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first)

	second, err := svc.GetAllCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "c9", second[0].Id)
	assert.Equal(t, models.SyncStateSynced, second[0].SyncState)
}

func TestGetAllCustomers_RepairFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice')`)
	require.NoError(t, err)

	store.err = common.ErrUnavailable
	all, err := svc.GetAllCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGetCustomerByID_RemoteCopyWins(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Stale')`)
	require.NoError(t, err)
	store.customers["c1"] = models.Customer{Id: "c1", Name: "Fresh"}

	got, err := svc.GetCustomerByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.Name)
	assert.Equal(t, models.SyncStateSynced, got.SyncState)
	// repaired copy persisted locally
	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM customers WHERE id = 'c1'`).Scan(&name))
	assert.Equal(t, "Fresh", name)
}

func TestGetCustomerByID_DeletedRemoteIgnored(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Local')`)
	require.NoError(t, err)
	store.customers["c1"] = models.Customer{Id: "c1", Name: "Gone", IsDeleted: true}

	got, err := svc.GetCustomerByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Local", got.Name)
}

func TestGetCustomerByID_NoRemoteFallbackOnLocalMiss(t *testing.T) {
	store := newFakeStore()
	store.customers["c1"] = models.Customer{Id: "c1", Name: "RemoteOnly"}
	svc, _ := newTestService(t, store, "uid")

	_, err := svc.GetCustomerByID(context.Background(), "c1")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGetCustomerWithOrders_RereadAfterRepair(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice')`)
	require.NoError(t, err)
	store.orders["c1"] = []models.Order{{Id: "o1", CustomerId: "c1", OrderTitle: "Widgets", OrderDate: 5}}

	got, err := svc.GetCustomerWithOrders(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "Widgets", got.Orders[0].OrderTitle)
}

func TestGetCustomerWithOrders_RepairFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders(id, customer_id, order_title) VALUES ('o1', 'c1', 'Local')`)
	require.NoError(t, err)

	store.err = common.ErrUnavailable
	got, err := svc.GetCustomerWithOrders(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Customer.Name)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "Local", got.Orders[0].OrderTitle)
}

func TestSyncAllPendingCustomers_EmptySetShortCircuits(t *testing.T) {
	store := newFakeStore()
	// no identity needed when there is nothing to push
	svc, _ := newTestService(t, store, "")

	msg, err := svc.SyncAllPendingCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No customers to sync", msg)
	assert.Zero(t, store.batchCustomerCalls)
}

func TestSyncAllPendingCustomers_RequiresIdentity(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice')`)
	require.NoError(t, err)

	_, err = svc.SyncAllPendingCustomers(context.Background())
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestSyncAllPendingCustomers_BatchIncludesTombstones(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice'), ('c2', 'Bob')`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE customers SET is_deleted = 1 WHERE id = 'c2'`)
	require.NoError(t, err)

	msg, err := svc.SyncAllPendingCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2 customers synced successfully", msg)
	assert.Equal(t, 1, store.batchCustomerCalls)
	assert.True(t, store.customers["c2"].IsDeleted)

	assert.Equal(t, "SYNCED", localSyncState(t, db, "customers", "c1"))
	assert.Equal(t, "SYNCED", localSyncState(t, db, "customers", "c2"))
}

func TestSyncAllPendingCustomers_BatchFailureLeavesPending(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice')`)
	require.NoError(t, err)

	store.err = common.ErrUnavailable
	_, err = svc.SyncAllPendingCustomers(context.Background())
	require.Error(t, err)
	assert.Equal(t, "PENDING", localSyncState(t, db, "customers", "c1"))
}

func TestSaveOrder_SavedAndSynced(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	o := &models.Order{Id: "o1", CustomerId: "c1", OrderTitle: "Widgets", OrderAmount: 12.5}
	msg, err := svc.SaveOrder(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "Order saved and synced successfully", msg)
	assert.Equal(t, "SYNCED", localSyncState(t, db, "orders", "o1"))
	require.Len(t, store.orders["c1"], 1)
	assert.Equal(t, models.SyncStateSynced, store.orders["c1"][0].SyncState)
}

func TestDeleteOrder_StatusStrings(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		remote error
		want   string
	}{
		{"synced", "uid", nil, "Order deleted and synced successfully"},
		{"offline", "uid", common.ErrUnavailable, "Order deleted locally, will sync when online"},
		{"unauthenticated", "", nil, "Order deleted locally, will sync when authenticated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc, db := newTestService(t, store, tt.userID)

			_, err := db.Exec(`INSERT INTO orders(id, customer_id) VALUES ('o1', 'c1')`)
			require.NoError(t, err)

			store.err = tt.remote
			msg, err := svc.DeleteOrder(context.Background(), "c1", "o1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestSyncAllPendingOrders_PerCustomerScope(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO orders(id, customer_id) VALUES ('o1', 'c1'), ('o2', 'c2')`)
	require.NoError(t, err)

	msg, err := svc.SyncAllPendingOrders(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "1 orders synced successfully", msg)
	assert.Equal(t, "SYNCED", localSyncState(t, db, "orders", "o1"))
	assert.Equal(t, "PENDING", localSyncState(t, db, "orders", "o2"))
}

func TestSyncAllPendingData_AllParts(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice'), ('c2', 'Bob')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders(id, customer_id) VALUES ('o1', 'c1'), ('o2', 'c1'), ('o3', 'c2')`)
	require.NoError(t, err)

	msg, err := svc.SyncAllPendingData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "All data synced successfully", msg)

	assert.Equal(t, 1, store.batchCustomerCalls)
	assert.Equal(t, 2, store.batchOrderCalls) // one batch per customer
	assert.Equal(t, "SYNCED", localSyncState(t, db, "orders", "o3"))
}

func TestSyncAllPendingData_NothingPending(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, "uid")

	msg, err := svc.SyncAllPendingData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "All data synced successfully", msg)
}

func TestSyncAllPendingData_PartialFailure(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "")

	_, err := db.Exec(`INSERT INTO customers(id, name) VALUES ('c1', 'Alice')`)
	require.NoError(t, err)

	_, err = svc.SyncAllPendingData(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "some data failed to sync")
}

func TestPurgeDeleted_SweepsBothTables(t *testing.T) {
	store := newFakeStore()
	svc, db := newTestService(t, store, "uid")

	_, err := db.Exec(`INSERT INTO customers(id, name, is_deleted) VALUES ('c1', 'Alice', 1), ('c2', 'Bob', 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders(id, customer_id, is_deleted) VALUES ('o1', 'c1', 1)`)
	require.NoError(t, err)

	n, err := svc.PurgeDeleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetCustomerStats(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, "uid")

	os := []models.Order{
		{Id: "o1", CustomerId: "c1", OrderAmount: 10, OrderDate: 100},
		{Id: "o2", CustomerId: "c1", OrderAmount: 2.5, OrderDate: 300},
		{Id: "o3", CustomerId: "c2", OrderAmount: 99, OrderDate: 400},
	}

	stats := svc.GetCustomerStats("c1", os)
	assert.Equal(t, 2, stats.OrderCount)
	assert.InDelta(t, 12.5, stats.TotalSpent, 1e-9)
	require.NotNil(t, stats.LastOrderDate)
	assert.Equal(t, int64(300), *stats.LastOrderDate)
}

func TestGetCustomerStats_NoOrders(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store, "uid")

	stats := svc.GetCustomerStats("c1", nil)
	assert.Zero(t, stats.OrderCount)
	assert.Zero(t, stats.TotalSpent)
	assert.Nil(t, stats.LastOrderDate)
}
