// Package users declares the server-side repository contract for user
// accounts and its SQLite implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/erpadmin/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
