package model

import (
	"time"

	"github.com/google/uuid"
)

// Document is file metadata; the blob lives in the object store at StoragePath.
type Document struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	URL         string       `gorm:"not null" json:"url"`
	StoragePath string       `gorm:"not null" json:"storagePath"`
	Type        string       `json:"type"`
	Size        int64        `json:"size"`
	Department  string       `gorm:"not null;index" json:"department"`
	CreatedBy   UserSnapshot `gorm:"type:jsonb;serializer:json" json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
}
