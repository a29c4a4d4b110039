package repository

import (
	"context"
	"errors"

	"solis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FormRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

func (r *FormRepository) Create(ctx context.Context, form *model.FormTemplate) error {
	return r.db.WithContext(ctx).Create(form).Error
}

func (r *FormRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FormTemplate, error) {
	var form model.FormTemplate
	if err := r.db.WithContext(ctx).First(&form, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	return &form, nil
}

func (r *FormRepository) List(ctx context.Context) ([]model.FormTemplate, error) {
	var forms []model.FormTemplate
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&forms).Error
	return forms, err
}

// Update replaces the editable template columns.
func (r *FormRepository) Update(ctx context.Context, form *model.FormTemplate) error {
	result := r.db.WithContext(ctx).Model(form).
		Select("title", "description", "fields", "is_active", "updated_at").
		Updates(form)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFormNotFound
	}
	return nil
}

func (r *FormRepository) CreateSubmission(ctx context.Context, sub *model.FormSubmission) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *FormRepository) ListSubmissions(ctx context.Context, formID uuid.UUID) ([]model.FormSubmission, error) {
	var subs []model.FormSubmission
	err := r.db.WithContext(ctx).Where("form_id = ?", formID).Order("submitted_at DESC").Find(&subs).Error
	return subs, err
}
