package models

// PortfolioImage is a photo of student or atelier work.
type PortfolioImage struct {
	Base        `bson:",inline"`
	Title       string `json:"title" bson:"title" form:"title" validate:"omitempty,max=200"`
	Description string `json:"description" bson:"description" form:"description" validate:"omitempty,max=2000"`
	Src         string `json:"src" bson:"src" form:"-"`
}

// PortfolioVideo is an embeddable video link. The URL is not checked for playability.
type PortfolioVideo struct {
	Base        `bson:",inline"`
	Title       string `json:"title" bson:"title" form:"title" validate:"omitempty,max=200"`
	Description string `json:"description" bson:"description" form:"description" validate:"omitempty,max=2000"`
	EmbedURL    string `json:"embedUrl" bson:"embed_url" form:"embedUrl" validate:"required,url"`
}
