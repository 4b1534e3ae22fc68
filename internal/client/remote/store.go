// Package remote defines the client's contract with the remote per-user
// document store and provides an HTTP implementation of it.
//
// Customer documents live in a per-user collection keyed by customer id;
// order documents live one level below, nested under their owning customer.
// Document ids equal local row ids, so upserts are idempotent in both
// directions.
package remote

import (
	"context"

	"github.com/demomiru/minicrm/internal/client/models"
)

// Store is the capability surface of the remote document store. All document
// operations are scoped to a user id; batch operations commit atomically.
type Store interface {
	Close() error

	// Ping checks server liveness.
	Ping(ctx context.Context) error

	// Register creates an account.
	Register(ctx context.Context, login, password string) error

	// Login authenticates and returns the stable user id plus a bearer token.
	Login(ctx context.Context, login, password string) (userID, token string, err error)

	// SetCustomer writes a full customer document at users/{uid}/customers/{id}.
	SetCustomer(ctx context.Context, userID string, c models.Customer) error

	// UpdateCustomer merges the given fields into an existing customer
	// document without replacing it.
	UpdateCustomer(ctx context.Context, userID, customerID string, fields map[string]any) error

	// GetCustomer fetches one customer document; common.ErrNotFound when absent.
	GetCustomer(ctx context.Context, userID, customerID string) (*models.Customer, error)

	// QueryCustomers returns the user's non-deleted customer documents,
	// newest first by creation time.
	QueryCustomers(ctx context.Context, userID string) ([]models.Customer, error)

	// SetOrder writes a full order document at
	// users/{uid}/customers/{customerId}/orders/{id}.
	SetOrder(ctx context.Context, userID string, o models.Order) error

	// UpdateOrder merges fields into an existing order document.
	UpdateOrder(ctx context.Context, userID, customerID, orderID string, fields map[string]any) error

	// QueryOrders returns a customer's non-deleted order documents, newest
	// first by order date.
	QueryOrders(ctx context.Context, userID, customerID string) ([]models.Order, error)

	// BatchSetCustomers commits all customer documents in one atomic batch.
	BatchSetCustomers(ctx context.Context, userID string, cs []models.Customer) error

	// BatchSetOrders commits all order documents for one customer in one
	// atomic batch.
	BatchSetOrders(ctx context.Context, userID, customerID string, os []models.Order) error
}

// TokenFunc supplies the current bearer token for authenticated calls.
type TokenFunc func(ctx context.Context) (string, error)
