package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportDiario    = "diario"
	ReportSemanal   = "semanal"
	ReportMensual   = "mensual"
	ReportIncidente = "incidente"
)

const (
	ReportPending  = "pending"
	ReportAnalyzed = "analyzed"
)

type Report struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string       `gorm:"not null" json:"title"`
	Type       string       `gorm:"not null" json:"type"`
	Department string       `gorm:"not null;index" json:"department"`
	CreatedBy  UserSnapshot `gorm:"type:jsonb;serializer:json" json:"createdBy"`
	DateRange  string       `json:"dateRange"`
	Metrics    []Metric     `gorm:"type:jsonb;serializer:json" json:"metrics"`
	Status     string       `gorm:"not null" json:"status"`
	AIAnalysis string       `gorm:"column:ai_analysis" json:"aiAnalysis"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type Metric struct {
	Label      string   `json:"label"`
	Value      string   `json:"value"`
	TrendValue *float64 `json:"trendValue,omitempty"`
}
