package models

import "gorm.io/datatypes"

// MaxAdditionalImages caps the gallery shown under a product's main image.
const MaxAdditionalImages = 6

// Product represents an item of the boutique storefront.
type Product struct {
	Base             `bson:",inline"`
	Title            string                      `json:"title" bson:"title" form:"title" gorm:"type:varchar(200)" validate:"required,max=200"`
	Description      string                      `json:"description" bson:"description" form:"description" validate:"omitempty,max=2000"`
	Price            float64                     `json:"price" bson:"price" form:"price" validate:"gte=0"`
	MainImage        string                      `json:"mainImage" bson:"main_image" form:"-"`
	AdditionalImages datatypes.JSONSlice[string] `json:"additionalImages" bson:"additional_images" form:"-"`
}
