package services

import (
	"context"
	"time"

	"atelier/internal/apperrors"
	"atelier/internal/models"
	"atelier/internal/repositories"
	"atelier/pkg/media"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AboutService manages the about page singleton and its success stories.
type AboutService struct {
	*SingletonService[models.AboutPage, *models.AboutPage]
}

// NewAboutService creates an AboutService.
func NewAboutService(repo repositories.Repository[models.AboutPage], store media.Store, cleaner MediaCleaner, maxSize int64) *AboutService {
	return &AboutService{
		SingletonService: NewSingletonService[models.AboutPage](repo, AboutSchema(), store, cleaner, maxSize),
	}
}

// AddStory appends a story. An image is required.
func (s *AboutService) AddStory(ctx context.Context, story models.SuccessStory, image *media.File) (*models.SuccessStory, error) {
	if image == nil {
		return nil, apperrors.Required("image")
	}
	if err := validateStruct(story); err != nil {
		return nil, err
	}
	page, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	url, err := s.uploadStoryImage(ctx, *image)
	if err != nil {
		return nil, err
	}

	story.ID = uuid.New().String()
	story.Image = url
	page.SuccessStories = append(datatypes.JSONSlice[models.SuccessStory]{}, page.SuccessStories...)
	page.SuccessStories = append(page.SuccessStories, story)
	if err := s.repo.Update(ctx, page); err != nil {
		s.cleaner.Discard(ctx, url)
		return nil, err
	}
	return &story, nil
}

// UpdateStory applies bind to the story's text and replaces its image when
// one is given.
func (s *AboutService) UpdateStory(ctx context.Context, storyID string, bind func(*models.SuccessStory) error, image *media.File) (*models.SuccessStory, error) {
	page, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	idx := findStory(page, storyID)
	if idx < 0 {
		return nil, apperrors.NotFound("success story", storyID)
	}

	stories := append(datatypes.JSONSlice[models.SuccessStory]{}, page.SuccessStories...)
	story := stories[idx]
	if bind != nil {
		if err := bind(&story); err != nil {
			return nil, err
		}
	}
	story.ID = storyID
	story.Image = stories[idx].Image
	if err := validateStruct(story); err != nil {
		return nil, err
	}

	var replaced string
	if image != nil {
		url, err := s.uploadStoryImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		replaced, story.Image = story.Image, url
	}

	stories[idx] = story
	page.SuccessStories = stories
	if err := s.repo.Update(ctx, page); err != nil {
		if image != nil {
			s.cleaner.Discard(ctx, story.Image)
		}
		return nil, err
	}
	s.cleaner.Discard(ctx, replaced)
	return &story, nil
}

// DeleteStory removes a story and discards its image.
func (s *AboutService) DeleteStory(ctx context.Context, storyID string) error {
	page, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	idx := findStory(page, storyID)
	if idx < 0 {
		return apperrors.NotFound("success story", storyID)
	}

	image := page.SuccessStories[idx].Image
	stories := make(datatypes.JSONSlice[models.SuccessStory], 0, len(page.SuccessStories)-1)
	stories = append(stories, page.SuccessStories[:idx]...)
	stories = append(stories, page.SuccessStories[idx+1:]...)
	page.SuccessStories = stories
	if err := s.repo.Update(ctx, page); err != nil {
		return err
	}
	s.cleaner.Discard(ctx, image)
	return nil
}

// References includes story images alongside the founder image.
func (s *AboutService) References(ctx context.Context) ([]string, error) {
	pages, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var urls []string
	for i := range pages {
		urls = append(urls, s.mediaURLs(&pages[i])...)
		for _, story := range pages[i].SuccessStories {
			urls = append(urls, story.Image)
		}
	}
	return nonEmpty(urls), nil
}

func (s *AboutService) uploadStoryImage(ctx context.Context, image media.File) (string, error) {
	if err := media.Check(&image, s.maxSize); err != nil {
		return "", apperrors.Validation("Invalid file", map[string]string{"image": err.Error()})
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	url, err := s.store.Upload(ctx, s.schema.Resource+"/stories", image)
	if err != nil {
		return "", apperrors.Upstream("Could not upload image", err)
	}
	return url, nil
}

func findStory(page *models.AboutPage, id string) int {
	for i, story := range page.SuccessStories {
		if story.ID == id {
			return i
		}
	}
	return -1
}
