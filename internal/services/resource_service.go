package services

import (
	"context"
	"errors"
	"fmt"

	"atelier/internal/apperrors"
	"atelier/internal/models"
	"atelier/internal/repositories"
	"atelier/pkg/media"

	"golang.org/x/sync/errgroup"
)

// ResourceService implements list/get/create/update/delete for one entity
// type, including concurrent image uploads and cleanup of replaced images.
type ResourceService[T any, PT models.EntityPtr[T]] struct {
	repo    repositories.Repository[T]
	schema  Schema[T]
	store   media.Store
	cleaner MediaCleaner
	maxSize int64
}

// NewResourceService creates a ResourceService. maxSize caps each uploaded file.
func NewResourceService[T any, PT models.EntityPtr[T]](repo repositories.Repository[T], schema Schema[T], store media.Store, cleaner MediaCleaner, maxSize int64) *ResourceService[T, PT] {
	if maxSize <= 0 {
		maxSize = media.DefaultMaxSize
	}
	if cleaner == nil {
		cleaner = noopCleaner{}
		if store != nil {
			cleaner = InlineCleaner{Store: store}
		}
	}
	return &ResourceService[T, PT]{
		repo:    repo,
		schema:  schema,
		store:   store,
		cleaner: cleaner,
		maxSize: maxSize,
	}
}

// Resource returns the schema's resource name.
func (s *ResourceService[T, PT]) Resource() string {
	return s.schema.Resource
}

// MediaFields lists the multipart fields that carry files for this resource.
func (s *ResourceService[T, PT]) MediaFields() []string {
	names := make([]string, 0, len(s.schema.Media))
	for _, f := range s.schema.Media {
		names = append(names, f.Name)
	}
	return names
}

// MaxUploadSize is the per-file cap.
func (s *ResourceService[T, PT]) MaxUploadSize() int64 {
	return s.maxSize
}

// List retrieves the whole collection.
func (s *ResourceService[T, PT]) List(ctx context.Context) ([]T, error) {
	return s.repo.GetAll(ctx)
}

// Get retrieves a single record by its ID.
func (s *ResourceService[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates item, uploads its files and stores it. Client supplied
// media URLs are ignored; only uploaded files set image fields.
func (s *ResourceService[T, PT]) Create(ctx context.Context, item *T, files Files) (*T, error) {
	*PT(item).Meta() = models.Base{}
	for _, f := range s.schema.Media {
		f.Set(item, nil)
	}
	if s.schema.BeforeCreate != nil {
		s.schema.BeforeCreate(item)
	}
	if err := s.checkFiles(item, files); err != nil {
		return nil, err
	}
	if err := validateStruct(item); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}
	s.assign(item, uploaded)

	if err := s.repo.Create(ctx, item); err != nil {
		s.cleaner.Discard(ctx, flatten(uploaded)...)
		return nil, err
	}
	if s.schema.AfterCreate != nil {
		s.schema.AfterCreate(ctx, item)
	}
	return item, nil
}

// Update loads the record, applies bind to it, replaces images that have new
// files and stores the result. Identity, timestamps and image URLs cannot be
// changed through bind.
func (s *ResourceService[T, PT]) Update(ctx context.Context, id string, bind func(*T) error, files Files) (*T, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, item, bind, files, s.repo.Update)
}

// Delete removes the record and discards its images.
func (s *ResourceService[T, PT]) Delete(ctx context.Context, id string) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cleaner.Discard(ctx, s.mediaURLs(item)...)
	return nil
}

// References returns every media URL held by the collection.
func (s *ResourceService[T, PT]) References(ctx context.Context) ([]string, error) {
	if len(s.schema.Media) == 0 {
		return nil, nil
	}
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var urls []string
	for i := range items {
		urls = append(urls, s.mediaURLs(&items[i])...)
	}
	return urls, nil
}

// apply is the shared update/upsert path. save persists the modified item.
func (s *ResourceService[T, PT]) apply(ctx context.Context, item *T, bind func(*T) error, files Files, save func(context.Context, *T) error) (*T, error) {
	meta := *PT(item).Meta()
	// Get returns fresh slices, so the saved URLs survive a bind that
	// decodes into the item's existing backing arrays.
	saved := make([][]string, len(s.schema.Media))
	for i, f := range s.schema.Media {
		saved[i] = f.Get(item)
	}
	var restore func(*T)
	if s.schema.Preserve != nil {
		restore = s.schema.Preserve(item)
	}
	if bind != nil {
		if err := bind(item); err != nil {
			return nil, err
		}
	}
	*PT(item).Meta() = meta
	for i, f := range s.schema.Media {
		f.Set(item, saved[i])
	}
	if restore != nil {
		restore(item)
	}

	if err := s.checkFiles(item, files); err != nil {
		return nil, err
	}
	if err := validateStruct(item); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}
	var replaced []string
	for _, f := range s.schema.Media {
		if _, ok := uploaded[f.Name]; ok {
			replaced = append(replaced, f.Get(item)...)
		}
	}
	s.assign(item, uploaded)

	if err := save(ctx, item); err != nil {
		s.cleaner.Discard(ctx, flatten(uploaded)...)
		return nil, err
	}
	s.cleaner.Discard(ctx, replaced...)
	return item, nil
}

// checkFiles enforces per-field counts, required images and the size cap
// before anything is uploaded.
func (s *ResourceService[T, PT]) checkFiles(item *T, files Files) error {
	for _, f := range s.schema.Media {
		batch := files[f.Name]
		if f.Max > 0 && len(batch) > f.Max {
			return apperrors.Validation("Validation failed", map[string]string{
				f.Name: fmt.Sprintf("Field '%s' accepts at most %d file(s)", f.Name, f.Max),
			})
		}
		if f.Required && len(batch) == 0 && len(f.Get(item)) == 0 {
			return apperrors.Required(f.Name)
		}
		for i := range batch {
			if err := media.Check(&batch[i], s.maxSize); err != nil {
				return apperrors.Validation("Invalid file", map[string]string{f.Name: err.Error()})
			}
		}
	}
	return nil
}

// uploadAll sends every file concurrently and waits for all of them. If any
// upload fails the ones that succeeded are discarded.
func (s *ResourceService[T, PT]) uploadAll(ctx context.Context, files Files) (map[string][]string, error) {
	uploaded := make(map[string][]string)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range s.schema.Media {
		batch := files[f.Name]
		if len(batch) == 0 {
			continue
		}
		slots := make([]string, len(batch))
		uploaded[f.Name] = slots
		for i, file := range batch {
			i, file := i, file
			g.Go(func() error {
				url, err := s.store.Upload(gctx, s.schema.Resource, file)
				if err != nil {
					return err
				}
				slots[i] = url
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		s.cleaner.Discard(ctx, flatten(uploaded)...)
		if errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrEmpty) {
			return nil, apperrors.Validation("Invalid file", map[string]string{"file": err.Error()})
		}
		return nil, apperrors.Upstream("Could not upload image", err)
	}
	return uploaded, nil
}

func (s *ResourceService[T, PT]) assign(item *T, uploaded map[string][]string) {
	for _, f := range s.schema.Media {
		if urls, ok := uploaded[f.Name]; ok {
			f.Set(item, urls)
		} else if len(f.Get(item)) == 0 {
			f.Set(item, nil)
		}
	}
}

func (s *ResourceService[T, PT]) mediaURLs(item *T) []string {
	var urls []string
	for _, f := range s.schema.Media {
		urls = append(urls, f.Get(item)...)
	}
	return urls
}

func flatten(uploaded map[string][]string) []string {
	var urls []string
	for _, batch := range uploaded {
		urls = append(urls, batch...)
	}
	return nonEmpty(urls)
}
