// Package models defines client-side data models for MiniCRM: customers,
// orders, their sync state, and derived read-only composites.
package models

import "github.com/google/uuid"

// Customer is a CRM customer row. The same shape is persisted locally and
// stored as a JSON document in the remote store, keyed by Id in both places.
//
// CreatedAt/UpdatedAt are logical, client-clock epoch milliseconds.
// IsDeleted is a tombstone: soft-deleted rows stay in storage until an
// explicit purge and are excluded from every normal read path.
type Customer struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	IsDeleted bool      `json:"isDeleted"`
	SyncState SyncState `json:"syncState"`
}

// NewCustomerID generates a client-side unique customer id.
func NewCustomerID() string {
	return uuid.NewString()
}

// CustomerWithOrders is a read-only composite of a customer and its
// non-deleted orders, materialized on demand. It is never persisted.
type CustomerWithOrders struct {
	Customer Customer `json:"customer"`
	Orders   []Order  `json:"orders"`
}
