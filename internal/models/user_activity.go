package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserActivity is append-only. Nothing updates or deletes these rows.
type UserActivity struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	UserID     *uint          `gorm:"index" json:"userId"`
	Action     string         `gorm:"not null" json:"action"`
	Resource   string         `gorm:"not null;index:idx_activity_resource" json:"resource"`
	ResourceID uint           `gorm:"index:idx_activity_resource" json:"resourceId"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null" json:"timestamp"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
