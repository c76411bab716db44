package models

type User struct {
	BaseModel

	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;default:employee" json:"role"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`
	IsApproved   bool   `gorm:"not null;default:false" json:"isApproved"`
}
