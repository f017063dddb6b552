package models

// ContactInfo is a singleton document with the school's contact details.
type ContactInfo struct {
	Base           `bson:",inline"`
	Phone1         string `json:"phone1" bson:"phone1" form:"phone1" validate:"required,max=40"`
	Phone2         string `json:"phone2" bson:"phone2" form:"phone2" validate:"omitempty,max=40"`
	Email1         string `json:"email1" bson:"email1" form:"email1" validate:"required,email"`
	Email2         string `json:"email2" bson:"email2" form:"email2" validate:"omitempty,email"`
	Address        string `json:"address" bson:"address" form:"address" validate:"omitempty,max=500"`
	WhatsappNumber string `json:"whatsappNumber" bson:"whatsapp_number" form:"whatsappNumber" validate:"omitempty,max=40"`
}

// ContactMessage is a visitor's message from the public contact form.
type ContactMessage struct {
	Base    `bson:",inline"`
	Name    string `json:"name" bson:"name" form:"name" validate:"required,max=120"`
	Email   string `json:"email" bson:"email" form:"email" validate:"required,email"`
	Phone   string `json:"phone" bson:"phone" form:"phone" validate:"omitempty,max=40"`
	Message string `json:"message" bson:"message" form:"message" validate:"required,max=5000"`
	IsRead  bool   `json:"isRead" bson:"is_read" form:"isRead"`
}
