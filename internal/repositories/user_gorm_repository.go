package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Touch(time.Now().UTC())
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// Count returns the number of stored users.
func (r *GORMUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
