package models

import "time"

type Project struct {
	BaseModel

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	Status      string     `gorm:"not null;default:todo" json:"status"`
	Priority    string     `gorm:"not null;default:medium" json:"priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	TeamID      uint       `gorm:"not null;index" json:"teamId"`
	CreatedByID *uint      `gorm:"index" json:"createdById"`

	// Relationships
	Team      *Team           `gorm:"foreignKey:TeamID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"team,omitempty"`
	CreatedBy *User           `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Members   []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members,omitempty"`
	Goals     []Goal          `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"goals,omitempty"`
}
