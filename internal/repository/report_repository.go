package repository

import (
	"context"
	"errors"
	"time"

	"solis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepository) List(ctx context.Context, department, reportType string) ([]model.Report, error) {
	var reports []model.Report
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if department != "" {
		q = q.Where("department = ?", department)
	}
	if reportType != "" {
		q = q.Where("type = ?", reportType)
	}
	err := q.Find(&reports).Error
	return reports, err
}

// SetAnalysis stores the AI commentary and marks the report analyzed.
func (r *ReportRepository) SetAnalysis(ctx context.Context, id uuid.UUID, analysis string) error {
	result := r.db.WithContext(ctx).Model(&model.Report{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ai_analysis": analysis,
		"status":      model.ReportAnalyzed,
		"updated_at":  time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Report{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}
