package services

import (
	"context"

	"atelier/internal/models"
	"atelier/pkg/media"

	"gorm.io/datatypes"
)

// Files maps a form field name to the files uploaded under it.
type Files map[string][]media.File

// MediaField declares an image-bearing field of T.
type MediaField[T any] struct {
	// Name is the multipart field the files arrive under.
	Name     string
	Required bool
	// Max is the number of files the field holds; 1 for a single URL.
	Max int
	Get func(*T) []string
	Set func(*T, []string)
}

// Schema parameterizes ResourceService for one entity type.
type Schema[T any] struct {
	// Resource names the entity in messages and is the object key prefix.
	Resource string
	Media    []MediaField[T]
	// BeforeCreate normalizes a new record before validation.
	BeforeCreate func(*T)
	// AfterCreate runs once the record is stored. It must not fail the request.
	AfterCreate func(context.Context, *T)
	// Preserve copies the fields an update may not touch and returns a
	// func that puts them back once the request body has been bound.
	Preserve func(*T) func(*T)
}

func single[T any](name string, required bool, field func(*T) *string) MediaField[T] {
	return MediaField[T]{
		Name:     name,
		Required: required,
		Max:      1,
		Get: func(item *T) []string {
			if v := *field(item); v != "" {
				return []string{v}
			}
			return nil
		},
		Set: func(item *T, urls []string) {
			*field(item) = ""
			if len(urls) > 0 {
				*field(item) = urls[0]
			}
		},
	}
}

func gallery[T any](name string, max int, field func(*T) *datatypes.JSONSlice[string]) MediaField[T] {
	return MediaField[T]{
		Name: name,
		Max:  max,
		Get: func(item *T) []string {
			return append([]string(nil), (*field(item))...)
		},
		Set: func(item *T, urls []string) {
			*field(item) = append(datatypes.JSONSlice[string]{}, urls...)
		},
	}
}

// ProductSchema requires a main image and allows up to six additional images.
func ProductSchema() Schema[models.Product] {
	return Schema[models.Product]{
		Resource: "products",
		Media: []MediaField[models.Product]{
			single("mainImage", true, func(p *models.Product) *string { return &p.MainImage }),
			gallery("additionalImages", models.MaxAdditionalImages, func(p *models.Product) *datatypes.JSONSlice[string] {
				return &p.AdditionalImages
			}),
		},
	}
}

func PortfolioImageSchema() Schema[models.PortfolioImage] {
	return Schema[models.PortfolioImage]{
		Resource: "portfolio",
		Media: []MediaField[models.PortfolioImage]{
			single("src", true, func(p *models.PortfolioImage) *string { return &p.Src }),
		},
	}
}

func PortfolioVideoSchema() Schema[models.PortfolioVideo] {
	return Schema[models.PortfolioVideo]{Resource: "videos"}
}

func TeamSchema() Schema[models.TeamMember] {
	return Schema[models.TeamMember]{
		Resource: "team",
		Media: []MediaField[models.TeamMember]{
			single("image", false, func(m *models.TeamMember) *string { return &m.Image }),
		},
	}
}

func AboutSchema() Schema[models.AboutPage] {
	return Schema[models.AboutPage]{
		Resource: "about",
		Media: []MediaField[models.AboutPage]{
			single("founderImage", false, func(a *models.AboutPage) *string { return &a.FounderImage }),
		},
		BeforeCreate: func(a *models.AboutPage) {
			if a.SuccessStories == nil {
				a.SuccessStories = datatypes.JSONSlice[models.SuccessStory]{}
			}
		},
		// Stories are managed through their own endpoints.
		Preserve: func(a *models.AboutPage) func(*models.AboutPage) {
			stories := append(datatypes.JSONSlice[models.SuccessStory]{}, a.SuccessStories...)
			return func(a *models.AboutPage) { a.SuccessStories = stories }
		},
	}
}

func ContactInfoSchema() Schema[models.ContactInfo] {
	return Schema[models.ContactInfo]{Resource: "contact"}
}

// ContactMessageSchema forces new messages unread and hands them to notify.
// Stored messages are read-only apart from IsRead.
func ContactMessageSchema(notify func(context.Context, *models.ContactMessage)) Schema[models.ContactMessage] {
	return Schema[models.ContactMessage]{
		Resource:     "messages",
		BeforeCreate: func(m *models.ContactMessage) { m.IsRead = false },
		AfterCreate:  notify,
		Preserve: func(m *models.ContactMessage) func(*models.ContactMessage) {
			original := *m
			return func(m *models.ContactMessage) {
				isRead := m.IsRead
				*m = original
				m.IsRead = isRead
			}
		},
	}
}
