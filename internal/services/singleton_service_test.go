package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"atelier/internal/apperrors"
	"atelier/internal/models"
	"atelier/internal/repositories"
	"atelier/internal/services"
	"atelier/pkg/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonService_FetchCreatesDefault(t *testing.T) {
	repo := repositories.NewMockRepository[models.ContactInfo]()
	svc := services.NewSingletonService[models.ContactInfo](repo, services.ContactInfoSchema(), nil, nil, 0)
	ctx := context.Background()

	info, err := svc.Fetch(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Empty(t, info.Phone1)

	again, err := svc.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.ID, again.ID, "only one document should ever exist")
	all, _ := repo.GetAll(ctx)
	assert.Len(t, all, 1)
}

// lateRepo stores the document under a competing create just before its own
// Create runs, then reports the primary key collision.
type lateRepo struct {
	*repositories.MockRepository[models.ContactInfo, *models.ContactInfo]
}

func (r lateRepo) Create(ctx context.Context, item *models.ContactInfo) error {
	winner := *item
	winner.Phone1 = "+1-555-0199"
	if err := r.MockRepository.Create(ctx, &winner); err != nil {
		return err
	}
	return errors.New("duplicate key value violates unique constraint")
}

func TestSingletonService_FetchLosesCreateRace(t *testing.T) {
	repo := lateRepo{repositories.NewMockRepository[models.ContactInfo]()}
	svc := services.NewSingletonService[models.ContactInfo](repo, services.ContactInfoSchema(), nil, nil, 0)

	info, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "+1-555-0199", info.Phone1)
}

func TestSingletonService_PutLosesCreateRace(t *testing.T) {
	mock := repositories.NewMockRepository[models.ContactInfo]()
	svc := services.NewSingletonService[models.ContactInfo](lateRepo{mock}, services.ContactInfoSchema(), nil, nil, 0)
	ctx := context.Background()

	saved, err := svc.Put(ctx, func(c *models.ContactInfo) error {
		c.Phone1 = "+1-555-0100"
		c.Email1 = "a@b.com"
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "+1-555-0100", saved.Phone1)

	all, _ := mock.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, saved.ID, all[0].ID)
	assert.Equal(t, "+1-555-0100", all[0].Phone1)
}

func TestSingletonService_ConcurrentFetchKeepsOneDocument(t *testing.T) {
	repo := repositories.NewMockRepository[models.ContactInfo]()
	svc := services.NewSingletonService[models.ContactInfo](repo, services.ContactInfoSchema(), nil, nil, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := svc.Fetch(ctx)
			if assert.NoError(t, err) {
				ids[i] = info.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, _ := repo.GetAll(ctx)
	assert.Len(t, all, 1)
}

func TestSingletonService_PutUpsertsOnEmptyStore(t *testing.T) {
	repo := repositories.NewMockRepository[models.ContactInfo]()
	svc := services.NewSingletonService[models.ContactInfo](repo, services.ContactInfoSchema(), nil, nil, 0)
	ctx := context.Background()

	saved, err := svc.Put(ctx, func(c *models.ContactInfo) error {
		c.Phone1 = "+1-555-0100"
		c.Email1 = "a@b.com"
		return nil
	}, nil)
	require.NoError(t, err)

	got, err := svc.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "+1-555-0100", got.Phone1)
	assert.Equal(t, "a@b.com", got.Email1)

	_, err = svc.Put(ctx, func(c *models.ContactInfo) error {
		c.Phone2 = "+1-555-0101"
		return nil
	}, nil)
	require.NoError(t, err)
	got, _ = svc.Fetch(ctx)
	assert.Equal(t, "+1-555-0100", got.Phone1)
	assert.Equal(t, "+1-555-0101", got.Phone2)
}

func TestSingletonService_PutValidates(t *testing.T) {
	repo := repositories.NewMockRepository[models.ContactInfo]()
	svc := services.NewSingletonService[models.ContactInfo](repo, services.ContactInfoSchema(), nil, nil, 0)

	_, err := svc.Put(context.Background(), func(c *models.ContactInfo) error {
		c.Phone1 = "+1-555-0100"
		c.Email1 = "not-an-email"
		return nil
	}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	all, _ := repo.GetAll(context.Background())
	assert.Empty(t, all)
}

func newAboutService() (*services.AboutService, *media.MemoryStore) {
	repo := repositories.NewMockRepository[models.AboutPage]()
	store := media.NewMemoryStore(mediaBase, 0)
	return services.NewAboutService(repo, store, services.InlineCleaner{Store: store}, 0), store
}

func TestAboutService_EmptyDefault(t *testing.T) {
	svc, _ := newAboutService()

	page, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.FounderImage)
	assert.NotNil(t, page.SuccessStories)
	assert.Empty(t, page.SuccessStories)
}

func TestAboutService_FounderImageReplaced(t *testing.T) {
	svc, store := newAboutService()
	ctx := context.Background()

	first, err := svc.Put(ctx, nil, services.Files{"founderImage": {pngFile("founder.png")}})
	require.NoError(t, err)
	second, err := svc.Put(ctx, nil, services.Files{"founderImage": {pngFile("founder2.png")}})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, store.Has(first.FounderImage))
	assert.True(t, store.Has(second.FounderImage))
}

func TestAboutService_PutKeepsStories(t *testing.T) {
	svc, store := newAboutService()
	ctx := context.Background()

	img := pngFile("story.png")
	story, err := svc.AddStory(ctx, models.SuccessStory{Heading: "Alumna", Paragraph: "P"}, &img)
	require.NoError(t, err)

	page, err := svc.Put(ctx, func(a *models.AboutPage) error {
		return json.Unmarshal([]byte(`{"successStories":[{"id":"x","image":"https://elsewhere/y.png","heading":"Other"}]}`), a)
	}, nil)
	require.NoError(t, err)
	require.Len(t, page.SuccessStories, 1)
	assert.Equal(t, *story, page.SuccessStories[0])

	page, err = svc.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, page.SuccessStories, 1)
	assert.Equal(t, story.ID, page.SuccessStories[0].ID)
	assert.True(t, store.Has(story.Image))
}

func TestAboutService_Stories(t *testing.T) {
	svc, store := newAboutService()
	ctx := context.Background()

	_, err := svc.AddStory(ctx, models.SuccessStory{Heading: "No image"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	img := pngFile("story.png")
	story, err := svc.AddStory(ctx, models.SuccessStory{Heading: "From student to owner", Paragraph: "Priya opened her studio."}, &img)
	require.NoError(t, err)
	assert.NotEmpty(t, story.ID)
	assert.True(t, store.Has(story.Image))

	next := pngFile("story2.png")
	updated, err := svc.UpdateStory(ctx, story.ID, func(s *models.SuccessStory) error {
		s.Heading = "Studio owner"
		s.Image = "https://elsewhere/x.png"
		return nil
	}, &next)
	require.NoError(t, err)
	assert.Equal(t, story.ID, updated.ID)
	assert.Equal(t, "Studio owner", updated.Heading)
	assert.Equal(t, "Priya opened her studio.", updated.Paragraph)
	assert.False(t, store.Has(story.Image))
	assert.True(t, store.Has(updated.Image))

	refs, err := svc.References(ctx)
	require.NoError(t, err)
	assert.Contains(t, refs, updated.Image)

	_, err = svc.UpdateStory(ctx, "missing", nil, nil)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.DeleteStory(ctx, story.ID))
	assert.False(t, store.Has(updated.Image))
	page, err := svc.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, page.SuccessStories)

	assert.True(t, apperrors.IsNotFound(svc.DeleteStory(ctx, story.ID)))
}
