package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldNumber   = "number"
	FieldDate     = "date"
	FieldEmail    = "email"
	FieldSelect   = "select"
)

type FormTemplate struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Fields      []FormField  `gorm:"type:jsonb;serializer:json" json:"fields"`
	IsActive    bool         `gorm:"not null;default:true" json:"isActive"`
	CreatedBy   UserSnapshot `gorm:"type:jsonb;serializer:json" json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type FormField struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// FormSubmission is immutable once stored. Answers are keyed by field label,
// so renaming a field orphans earlier answers.
type FormSubmission struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	FormID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"formId"`
	Answers     map[string]string `gorm:"type:jsonb;serializer:json" json:"answers"`
	SubmittedBy string            `gorm:"not null" json:"submittedBy"`
	SubmittedAt time.Time         `gorm:"autoCreateTime" json:"submittedAt"`
}

const AnonymousSubmitter = "anonymous"
