package session

import "context"

// Repository is a small key/value store for locally cached session data:
// the authenticated user id, the bearer token, and the login name.
type Repository interface {
	// Get returns the value stored under name, or common.ErrNotFound
	// when absent.
	Get(ctx context.Context, name string) (string, error)

	// Set stores or replaces the value under name.
	Set(ctx context.Context, name, value string) error

	// Clear removes all session values (logout).
	Clear(ctx context.Context) error
}

// Well-known session keys.
const (
	KeyUserID = "user_id"
	KeyToken  = "token"
	KeyLogin  = "login"
)
