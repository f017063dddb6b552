package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]models.User)}
}

func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Touch(time.Now().UTC())
	r.users[user.ID] = *user
	return nil
}

func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

func (r *MockUserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}
