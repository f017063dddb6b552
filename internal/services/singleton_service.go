package services

import (
	"context"

	"atelier/internal/apperrors"
	"atelier/internal/models"
	"atelier/internal/repositories"
	"atelier/pkg/media"

	"github.com/google/uuid"
)

// SingletonService manages an entity expected to exist exactly once. Reads
// create an empty default on first access; writes upsert.
type SingletonService[T any, PT models.EntityPtr[T]] struct {
	*ResourceService[T, PT]
}

// NewSingletonService creates a SingletonService.
func NewSingletonService[T any, PT models.EntityPtr[T]](repo repositories.Repository[T], schema Schema[T], store media.Store, cleaner MediaCleaner, maxSize int64) *SingletonService[T, PT] {
	return &SingletonService[T, PT]{
		ResourceService: NewResourceService[T, PT](repo, schema, store, cleaner, maxSize),
	}
}

// Fetch returns the document, creating an empty default if none exists.
func (s *SingletonService[T, PT]) Fetch(ctx context.Context) (*T, error) {
	item, err := s.repo.First(ctx)
	if err == nil {
		return item, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}
	item = s.blank()
	if err := s.repo.Create(ctx, item); err != nil {
		// Another request created the document first.
		if existing, ferr := s.repo.First(ctx); ferr == nil {
			return existing, nil
		}
		return nil, err
	}
	return item, nil
}

// Put applies bind and files to the document, creating it if absent.
func (s *SingletonService[T, PT]) Put(ctx context.Context, bind func(*T) error, files Files) (*T, error) {
	item, err := s.repo.First(ctx)
	switch {
	case err == nil:
		return s.apply(ctx, item, bind, files, s.repo.Update)
	case apperrors.IsNotFound(err):
		created, err := s.apply(ctx, s.blank(), bind, files, s.repo.Create)
		if err == nil || apperrors.IsValidation(err) {
			return created, err
		}
		existing, ferr := s.repo.First(ctx)
		if ferr != nil {
			return nil, err
		}
		return s.apply(ctx, existing, bind, files, s.repo.Update)
	default:
		return nil, err
	}
}

// blank builds the default document. Its ID is derived from the resource
// name so concurrent first writes collide on the primary key instead of
// leaving two documents behind.
func (s *SingletonService[T, PT]) blank() *T {
	item := new(T)
	PT(item).Meta().ID = singletonID(s.schema.Resource)
	if s.schema.BeforeCreate != nil {
		s.schema.BeforeCreate(item)
	}
	s.assign(item, nil)
	return item
}

func singletonID(resource string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("atelier:singleton:"+resource)).String()
}
