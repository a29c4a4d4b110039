package repository

import (
	"context"
	"errors"

	"solis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

func (r *ListRepository) Create(ctx context.Context, list *model.TaskList) error {
	return r.db.WithContext(ctx).Create(list).Error
}

// GetAll returns every list, optionally restricted to one department.
func (r *ListRepository) GetAll(ctx context.Context, department string) ([]model.TaskList, error) {
	var lists []model.TaskList
	q := r.db.WithContext(ctx).Order("created_at")
	if department != "" {
		q = q.Where("department = ?", department)
	}
	err := q.Find(&lists).Error
	return lists, err
}

func (r *ListRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskList, error) {
	var list model.TaskList
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

func (r *ListRepository) Update(ctx context.Context, list *model.TaskList) error {
	result := r.db.WithContext(ctx).Model(list).
		Select("title", "description", "department", "updated_at").
		Updates(list)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListNotFound
	}
	return nil
}
