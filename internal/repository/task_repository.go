package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"solis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskQuery narrows List. Zero values mean "no restriction".
type TaskQuery struct {
	ListID     *uuid.UUID
	Status     string
	Department string
	AssigneeID string
	// VisibleTo restricts results to tasks in the viewer's department or
	// assigned to / created by the viewer.
	VisibleTo *Viewer
}

type Viewer struct {
	UserID     uuid.UUID
	Department string
}

// partition scopes a query to the (list, status) ordering partition.
func partition(tx *gorm.DB, listID *uuid.UUID, status string) *gorm.DB {
	if listID == nil {
		return tx.Where("list_id IS NULL AND status = ?", status)
	}
	return tx.Where("list_id = ? AND status = ?", *listID, status)
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// List returns tasks ordered by partition position.
func (r *TaskRepository) List(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	tx := r.db.WithContext(ctx).Model(&model.Task{})
	if q.ListID != nil {
		tx = tx.Where("list_id = ?", *q.ListID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Department != "" {
		tx = tx.Where("department = ?", q.Department)
	}
	if q.AssigneeID != "" {
		member, err := memberOf(q.AssigneeID)
		if err != nil {
			return nil, err
		}
		tx = tx.Where("assignees @> ?::jsonb", member)
	}
	if v := q.VisibleTo; v != nil {
		member, err := memberOf(v.UserID.String())
		if err != nil {
			return nil, err
		}
		tx = tx.Where("(department = ? OR assignees @> ?::jsonb OR created_by->>'id' = ?)",
			v.Department, member, v.UserID.String())
	}

	var tasks []model.Task
	err := tx.Order("sort_order").Order("created_at").Find(&tasks).Error
	return tasks, err
}

// memberOf renders the containment operand matching an assignee id.
func memberOf(userID string) (string, error) {
	b, err := json.Marshal([]map[string]string{{"id": userID}})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CountInPartition counts the tasks sharing a list and status.
func (r *TaskRepository) CountInPartition(ctx context.Context, listID *uuid.UUID, status string) (int64, error) {
	var count int64
	err := partition(r.db.WithContext(ctx).Model(&model.Task{}), listID, status).Count(&count).Error
	return count, err
}

// UpdateFields writes only the named columns plus updated_at, and appends
// entry to the activity log in the same statement. Status and sort_order
// belong to Reposition, which keeps partition positions unique.
func (r *TaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}, entry model.Activity) error {
	updates, err := withActivity(fields, entry)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func withActivity(fields map[string]interface{}, entry model.Activity) (map[string]interface{}, error) {
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	logExpr, err := appendJSONB("activity_log", entry)
	if err != nil {
		return nil, err
	}
	updates["activity_log"] = logExpr
	updates["updated_at"] = time.Now()
	return updates, nil
}

// AssigneeFields renders the assignee columns for UpdateFields.
func AssigneeFields(assignees []model.UserSnapshot) (map[string]interface{}, error) {
	var t model.Task
	t.SetAssignees(assignees)
	value, err := jsonb(t.Assignees)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"assignees":       value,
		"assignee_name":   t.AssigneeName,
		"assignee_avatar": t.AssigneeAvatar,
	}, nil
}

// Append adds item to one of the jsonb array columns (comments, attachments, subtasks).
func (r *TaskRepository) Append(ctx context.Context, id uuid.UUID, column string, item interface{}, entry model.Activity) error {
	expr, err := appendJSONB(column, item)
	if err != nil {
		return err
	}
	return r.UpdateFields(ctx, id, map[string]interface{}{column: expr}, entry)
}

// MutateSubtasks applies fn to the subtask list under a row lock.
func (r *TaskRepository) MutateSubtasks(ctx context.Context, id uuid.UUID, fn func([]model.Subtask) ([]model.Subtask, error), entry model.Activity) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		subtasks, err := fn(task.Subtasks)
		if err != nil {
			return err
		}
		value, err := jsonb(subtasks)
		if err != nil {
			return err
		}
		logExpr, err := appendJSONB("activity_log", entry)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&model.Task{}).Where("id = ?", id).Updates(map[string]interface{}{
			"subtasks":     value,
			"activity_log": logExpr,
			"updated_at":   now,
		}).Error; err != nil {
			return err
		}
		task.Subtasks = subtasks
		task.ActivityLog = append(task.ActivityLog, entry)
		task.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task and closes the gap it leaves in its partition.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.Clauses(clause.Returning{}).Where("id = ?", id).Delete(&task).Error; err != nil {
			return err
		}
		if task.ID == uuid.Nil {
			return ErrTaskNotFound
		}
		return partition(tx.Model(&model.Task{}), task.ListID, task.Status).
			Where("sort_order > ?", task.Order).
			Update("sort_order", gorm.Expr("sort_order - 1")).Error
	})
}

// Placement is a requested partition position. An empty Status keeps the
// current one; a nil Position keeps the current position when the status is
// unchanged and means the end of the partition otherwise.
type Placement struct {
	Status   string
	Position *int
}

// MoveTask sets status and position together.
func (r *TaskRepository) MoveTask(ctx context.Context, taskID uuid.UUID, status string, newPosition int, entry model.Activity) (*model.Task, error) {
	return r.Reposition(ctx, taskID, Placement{Status: status, Position: &newPosition}, nil, entry)
}

// Reposition applies place together with any other fields. Positions in the
// source and destination partitions are shifted inside the same transaction,
// so readers never see the task with only one of status and order changed
// and no two tasks of a partition share a position. Positions past the end
// of the destination partition are clamped to it.
func (r *TaskRepository) Reposition(ctx context.Context, taskID uuid.UUID, place Placement, fields map[string]interface{}, entry model.Activity) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		oldStatus := task.Status
		oldPosition := task.Order
		status := place.Status
		if status == "" {
			status = oldStatus
		}

		var others int64
		if err := partition(tx.Model(&model.Task{}), task.ListID, status).
			Where("id <> ?", taskID).Count(&others).Error; err != nil {
			return err
		}
		newPosition := int(others)
		if place.Position != nil && *place.Position < newPosition {
			newPosition = *place.Position
		} else if place.Position == nil && status == oldStatus {
			newPosition = oldPosition
		}

		if oldStatus != status {
			// Close the gap in the source partition
			if err := partition(tx.Model(&model.Task{}), task.ListID, oldStatus).
				Where("sort_order > ?", oldPosition).
				Update("sort_order", gorm.Expr("sort_order - 1")).Error; err != nil {
				return err
			}

			// Make space in the destination partition
			if err := partition(tx.Model(&model.Task{}), task.ListID, status).
				Where("sort_order >= ?", newPosition).
				Update("sort_order", gorm.Expr("sort_order + 1")).Error; err != nil {
				return err
			}
		} else if oldPosition < newPosition {
			if err := partition(tx.Model(&model.Task{}), task.ListID, status).
				Where("sort_order > ? AND sort_order <= ?", oldPosition, newPosition).
				Update("sort_order", gorm.Expr("sort_order - 1")).Error; err != nil {
				return err
			}
		} else if oldPosition > newPosition {
			if err := partition(tx.Model(&model.Task{}), task.ListID, status).
				Where("sort_order >= ? AND sort_order < ?", newPosition, oldPosition).
				Update("sort_order", gorm.Expr("sort_order + 1")).Error; err != nil {
				return err
			}
		}

		updates, err := withActivity(fields, entry)
		if err != nil {
			return err
		}
		updates["status"] = status
		updates["sort_order"] = newPosition
		if err := tx.Model(&model.Task{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
			return err
		}

		task = model.Task{}
		return tx.First(&task, "id = ?", taskID).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}
