package repositories

import (
	"context"

	"atelier/internal/models"
)

// UserRepository defines the interface for admin account access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}
