package models

// TeamMember is shown on the about and home pages.
type TeamMember struct {
	Base        `bson:",inline"`
	Name        string `json:"name" bson:"name" form:"name" validate:"required,max=120"`
	Image       string `json:"image" bson:"image" form:"-"`
	Address     string `json:"address" bson:"address" form:"address" validate:"omitempty,max=200"` // role text
	Content     string `json:"content" bson:"content" form:"content" validate:"omitempty,max=2000"` // quote
	Description string `json:"description" bson:"description" form:"description" validate:"omitempty,max=2000"`
}
