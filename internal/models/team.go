package models

type Team struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	CreatedByID *uint  `gorm:"index" json:"createdById"`
	IsActive    bool   `gorm:"not null;default:true" json:"isActive"`

	// Relationships
	CreatedBy *User        `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Members   []TeamMember `gorm:"foreignKey:TeamID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members,omitempty"`
}
