package repositories

import (
	"context"
	"sync"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"

	"github.com/google/uuid"
)

// MockRepository is an in-memory implementation of Repository.
type MockRepository[T any, PT models.EntityPtr[T]] struct {
	items map[string]T
	order []string
	name  string
	mu    sync.RWMutex
}

// NewMockRepository creates a new instance of MockRepository.
func NewMockRepository[T any, PT models.EntityPtr[T]]() *MockRepository[T, PT] {
	return &MockRepository[T, PT]{
		items: make(map[string]T),
		name:  resourceName(PT(new(T))),
	}
}

// GetAll returns all records in insertion order.
func (r *MockRepository[T, PT]) GetAll(_ context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]T, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.items[id])
	}
	return list, nil
}

// GetByID returns a record by its ID.
func (r *MockRepository[T, PT]) GetByID(_ context.Context, id string) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound(r.name, id)
	}
	return &item, nil
}

// First returns the earliest inserted record.
func (r *MockRepository[T, PT]) First(_ context.Context) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, apperrors.NotFound(r.name, "(first)")
	}
	item := r.items[r.order[0]]
	return &item, nil
}

// Create adds a new record.
func (r *MockRepository[T, PT]) Create(_ context.Context, item *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := PT(item).Meta()
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	meta.Touch(time.Now().UTC())
	if _, exists := r.items[meta.ID]; !exists {
		r.order = append(r.order, meta.ID)
	}
	r.items[meta.ID] = *item
	return nil
}

// Update modifies an existing record.
func (r *MockRepository[T, PT]) Update(_ context.Context, item *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := PT(item).Meta()
	if _, ok := r.items[meta.ID]; !ok {
		return apperrors.NotFound(r.name, meta.ID)
	}
	meta.Touch(time.Now().UTC())
	r.items[meta.ID] = *item
	return nil
}

// Delete removes a record by its ID.
func (r *MockRepository[T, PT]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperrors.NotFound(r.name, id)
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// NewMockSet wires in-memory repositories for every collection.
func NewMockSet() *Set {
	return &Set{
		Products:        NewMockRepository[models.Product](),
		PortfolioImages: NewMockRepository[models.PortfolioImage](),
		PortfolioVideos: NewMockRepository[models.PortfolioVideo](),
		Team:            NewMockRepository[models.TeamMember](),
		About:           NewMockRepository[models.AboutPage](),
		ContactInfo:     NewMockRepository[models.ContactInfo](),
		ContactMessages: NewMockRepository[models.ContactMessage](),
		Users:           NewMockUserRepository(),
	}
}
