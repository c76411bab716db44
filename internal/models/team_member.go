package models

// TeamMember rows are never hard-deleted by membership changes; removal
// flips IsActive and re-adding reactivates the same row.
type TeamMember struct {
	BaseModel

	TeamID   uint   `gorm:"not null;uniqueIndex:idx_team_user" json:"teamId"`
	UserID   uint   `gorm:"not null;uniqueIndex:idx_team_user" json:"userId"`
	Role     string `gorm:"not null" json:"role"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}
