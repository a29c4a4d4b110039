package repository

import (
	"context"
	"errors"
	"time"

	"solis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateWithCredential inserts the profile and its identity record in one transaction.
func (r *UserRepository) CreateWithCredential(ctx context.Context, user *model.User, cred *model.Credential) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(cred).Error
	})
}

func (r *UserRepository) FindCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var cred model.Credential
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns nil, nil when the profile does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, department string, activeOnly bool) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx).Order("name")
	if department != "" {
		q = q.Where("department = ?", department)
	}
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&users).Error
	return users, err
}

// UpdateProfile writes self-editable profile columns only. Permissions are
// never part of this statement.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for _, col := range []string{"name", "avatar", "department"} {
		if v, ok := fields[col]; ok {
			updates[col] = v
		}
	}
	updates["updated_at"] = time.Now()
	return r.updateColumns(ctx, id, updates)
}

// SetRole stores a new role together with its freshly seeded permissions.
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role string, perms model.Permissions) error {
	value, err := jsonb(perms)
	if err != nil {
		return err
	}
	return r.updateColumns(ctx, id, map[string]interface{}{
		"role":        role,
		"permissions": value,
		"updated_at":  time.Now(),
	})
}

func (r *UserRepository) SetPermissions(ctx context.Context, id uuid.UUID, perms model.Permissions) error {
	value, err := jsonb(perms)
	if err != nil {
		return err
	}
	return r.updateColumns(ctx, id, map[string]interface{}{
		"permissions": value,
		"updated_at":  time.Now(),
	})
}

func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"is_active":  active,
		"updated_at": time.Now(),
	})
}

// TouchLastSeen stamps the last time a session resolved to this profile.
func (r *UserRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("last_seen_at", at).Error
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteWithCredential removes the identity record and the profile together.
func (r *UserRepository) DeleteWithCredential(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Credential{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) updateColumns(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
