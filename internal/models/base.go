package models

import "time"

// Base holds the identity and timestamps shared by every stored document.
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id" form:"-"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" form:"-"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at" form:"-"`
}

// GetID returns the record identifier.
func (b Base) GetID() string { return b.ID }

// Meta exposes the embedded Base for repositories.
func (b *Base) Meta() *Base { return b }

// Touch sets CreatedAt on first save and UpdatedAt on every save.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Entity is implemented by pointers to stored documents.
type Entity interface {
	GetID() string
	Meta() *Base
}

// EntityPtr constrains PT to be *T and an Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}
