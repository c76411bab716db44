package models

import "time"

type Task struct {
	BaseModel

	Title        string     `gorm:"not null" json:"title"`
	Description  string     `json:"description"`
	Status       string     `gorm:"not null;default:todo" json:"status"`
	Deadline     *time.Time `json:"deadline"`
	GoalID       uint       `gorm:"not null;index" json:"goalId"`
	AssignedToID *uint      `gorm:"index" json:"assignedToId"`
	CreatedByID  *uint      `gorm:"index" json:"createdById"`

	// Relationships
	Goal       *Goal `gorm:"foreignKey:GoalID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"goal,omitempty"`
	AssignedTo *User `gorm:"foreignKey:AssignedToID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	CreatedBy  *User `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}
