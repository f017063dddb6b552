package models

import "gorm.io/datatypes"

// SuccessStory is one entry of the about page's stories list.
type SuccessStory struct {
	ID        string `json:"id" bson:"id" form:"-"`
	Image     string `json:"image" bson:"image" form:"-"`
	Heading   string `json:"heading" bson:"heading" form:"heading" validate:"max=200"`
	Paragraph string `json:"paragraph" bson:"paragraph" form:"paragraph" validate:"max=4000"`
}

// AboutPage is a singleton document.
type AboutPage struct {
	Base           `bson:",inline"`
	FounderImage   string                            `json:"founderImage" bson:"founder_image" form:"-"`
	SuccessStories datatypes.JSONSlice[SuccessStory] `json:"successStories" bson:"success_stories" form:"-"`
}
