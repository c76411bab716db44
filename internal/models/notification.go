package models

import (
	"time"
)

type Notification struct {
	BaseModel

	UserID            uint       `gorm:"not null;index" json:"userId"`
	Title             string     `gorm:"not null" json:"title"`
	Message           string     `json:"message"`
	Type              string     `gorm:"not null;index" json:"type"` // project_created, task_assigned, task_completed, ...
	RelatedEntityType string     `json:"relatedEntityType"`
	RelatedEntityID   uint       `json:"relatedEntityId"`
	IsRead            bool       `gorm:"not null;default:false" json:"isRead"`
	ReadAt            *time.Time `json:"readAt"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
