package models

type ProjectMember struct {
	BaseModel

	UserID    uint   `gorm:"not null;uniqueIndex:idx_user_project" json:"userId"`
	ProjectID uint   `gorm:"not null;uniqueIndex:idx_user_project" json:"projectId"`
	Role      string `gorm:"not null" json:"role"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}
