// Package users declares and implements storage of registered users.
package users

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its id. A taken username yields
	// common.ErrUserExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrNotFound for an unknown username.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
