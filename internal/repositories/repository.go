package repositories

import (
	"context"

	"atelier/internal/models"
)

// Repository defines data access for one entity collection.
// Implementations return apperrors.ErrNotFound (wrapped) for unknown ids.
type Repository[T any] interface {
	GetAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (*T, error)
	// First returns the earliest created record. Singletons are read through it.
	First(ctx context.Context) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, id string) error
}

// Set bundles one repository per stored collection.
type Set struct {
	Products        Repository[models.Product]
	PortfolioImages Repository[models.PortfolioImage]
	PortfolioVideos Repository[models.PortfolioVideo]
	Team            Repository[models.TeamMember]
	About           Repository[models.AboutPage]
	ContactInfo     Repository[models.ContactInfo]
	ContactMessages Repository[models.ContactMessage]
	Users           UserRepository
}

// resourceName returns the human readable name used in not-found messages.
func resourceName(item any) string {
	switch item.(type) {
	case *models.Product:
		return "product"
	case *models.PortfolioImage:
		return "portfolio image"
	case *models.PortfolioVideo:
		return "portfolio video"
	case *models.TeamMember:
		return "team member"
	case *models.AboutPage:
		return "about page"
	case *models.ContactInfo:
		return "contact info"
	case *models.ContactMessage:
		return "contact message"
	case *models.User:
		return "user"
	default:
		return "record"
	}
}
