package models

import "time"

// BaseModel is gorm.Model without soft deletes: rows removed by the
// application are removed from the store so FK cascades apply.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
