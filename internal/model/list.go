package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskList groups tasks; together with the status it forms the ordering partition.
type TaskList struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Department  string    `gorm:"not null;default:general" json:"department"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null" json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
