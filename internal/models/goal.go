package models

import "time"

type Goal struct {
	BaseModel

	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Status      string     `gorm:"not null;default:todo" json:"status"`
	Deadline    *time.Time `json:"deadline"`
	ProjectID   uint       `gorm:"not null;index" json:"projectId"`
	CreatedByID *uint      `gorm:"index" json:"createdById"`

	// Relationships
	Project   *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"project,omitempty"`
	CreatedBy *User    `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Tasks     []Task   `gorm:"foreignKey:GoalID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"tasks,omitempty"`
}
