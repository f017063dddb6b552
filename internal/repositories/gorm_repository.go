package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMRepository is a GORM implementation of Repository.
type GORMRepository[T any, PT models.EntityPtr[T]] struct {
	db   *gorm.DB
	name string
}

// NewGORMRepository creates a new GORM backed repository for T.
func NewGORMRepository[T any, PT models.EntityPtr[T]](db *gorm.DB) *GORMRepository[T, PT] {
	return &GORMRepository[T, PT]{
		db:   db,
		name: resourceName(PT(new(T))),
	}
}

// GetAll retrieves all records in creation order.
func (r *GORMRepository[T, PT]) GetAll(ctx context.Context) ([]T, error) {
	items := make([]T, 0)
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get all %s records: %w", r.name, err)
	}
	return items, nil
}

// GetByID retrieves a single record by its ID.
func (r *GORMRepository[T, PT]) GetByID(ctx context.Context, id string) (*T, error) {
	item := new(T)
	if err := r.db.WithContext(ctx).First(item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(r.name, id)
		}
		return nil, fmt.Errorf("failed to get %s by ID %s: %w", r.name, id, err)
	}
	return item, nil
}

// First retrieves the earliest created record.
func (r *GORMRepository[T, PT]) First(ctx context.Context) (*T, error) {
	item := new(T)
	if err := r.db.WithContext(ctx).Order("created_at asc").Take(item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(r.name, "(first)")
		}
		return nil, fmt.Errorf("failed to get first %s: %w", r.name, err)
	}
	return item, nil
}

// Create inserts a new record, assigning its ID and timestamps.
func (r *GORMRepository[T, PT]) Create(ctx context.Context, item *T) error {
	meta := PT(item).Meta()
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	meta.Touch(time.Now().UTC())
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", r.name, err)
	}
	return nil
}

// Update replaces an existing record.
func (r *GORMRepository[T, PT]) Update(ctx context.Context, item *T) error {
	meta := PT(item).Meta()
	meta.Touch(time.Now().UTC())
	// Select("*") writes zero values too; Save would insert a missing row instead of failing.
	res := r.db.WithContext(ctx).Model(item).Where("id = ?", meta.ID).Select("*").Updates(item)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(r.name, meta.ID)
	}
	return nil
}

// Delete removes a record by its ID.
func (r *GORMRepository[T, PT]) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(r.name, id)
	}
	return nil
}

// AutoMigrate creates or updates the tables of every stored collection.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.PortfolioImage{},
		&models.PortfolioVideo{},
		&models.TeamMember{},
		&models.AboutPage{},
		&models.ContactInfo{},
		&models.ContactMessage{},
		&models.User{},
	)
}

// NewGORMSet wires GORM repositories for every collection.
func NewGORMSet(db *gorm.DB) *Set {
	return &Set{
		Products:        NewGORMRepository[models.Product](db),
		PortfolioImages: NewGORMRepository[models.PortfolioImage](db),
		PortfolioVideos: NewGORMRepository[models.PortfolioVideo](db),
		Team:            NewGORMRepository[models.TeamMember](db),
		About:           NewGORMRepository[models.AboutPage](db),
		ContactInfo:     NewGORMRepository[models.ContactInfo](db),
		ContactMessages: NewGORMRepository[models.ContactMessage](db),
		Users:           NewGORMUserRepository(db),
	}
}
