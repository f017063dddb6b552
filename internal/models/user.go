package models

// User is the admin account. Only one is seeded.
type User struct {
	Base     `bson:",inline"`
	Email    string `json:"email" bson:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `json:"-" bson:"password" gorm:"type:varchar(255)" validate:"required,min=6"` // bcrypt hash once stored
}
