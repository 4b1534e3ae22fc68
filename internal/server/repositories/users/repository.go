package users

import (
	"context"

	"github.com/demomiru/minicrm/internal/server/models"
)

type Repository interface {
	// Create inserts an account and returns it with its generated id.
	// A duplicate login yields common.ErrLoginAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns an account or common.ErrNotFound.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
