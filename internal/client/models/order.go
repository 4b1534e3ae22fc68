package models

import "github.com/google/uuid"

// Order is a customer order. Its remote document lives nested under the
// owning customer's document, so CustomerId determines the remote path.
//
// OrderDate is a logical epoch-millisecond timestamp independent of
// UpdatedAt. OrderAmount is a non-negative amount of money.
type Order struct {
	Id          string    `json:"id"`
	CustomerId  string    `json:"customerId"`
	OrderTitle  string    `json:"orderTitle"`
	OrderAmount float64   `json:"orderAmount"`
	OrderDate   int64     `json:"orderDate"`
	UpdatedAt   int64     `json:"updatedAt"`
	IsDeleted   bool      `json:"isDeleted"`
	SyncState   SyncState `json:"syncState"`
}

// NewOrderID generates a client-side unique order id.
func NewOrderID() string {
	return uuid.NewString()
}

// CustomerStats is an in-memory aggregation over a customer's orders.
// LastOrderDate is nil when the customer has no orders.
type CustomerStats struct {
	OrderCount    int     `json:"orderCount"`
	TotalSpent    float64 `json:"totalSpent"`
	LastOrderDate *int64  `json:"lastOrderDate"`
}
