package model

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses in kanban column order.
const (
	StatusToDo       = "to_do"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

var Statuses = []string{StatusToDo, StatusInProgress, StatusReview, StatusDone}

const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

var Priorities = []string{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ListID      *uuid.UUID     `gorm:"type:uuid;index" json:"listId"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Status      string         `gorm:"not null;index" json:"status"`
	Priority    string         `gorm:"not null" json:"priority"`
	Department  string         `gorm:"not null;index" json:"department"`
	Assignees   []UserSnapshot `gorm:"type:jsonb;serializer:json" json:"assignees"`
	// AssigneeName and AssigneeAvatar mirror the first assignee; nil when unassigned.
	AssigneeName   *string        `json:"assigneeName"`
	AssigneeAvatar *string        `json:"assigneeAvatar"`
	DueDate        *Date          `gorm:"type:date" json:"dueDate"`
	Subtasks       []Subtask      `gorm:"type:jsonb;serializer:json" json:"subtasks"`
	Comments       []Comment      `gorm:"type:jsonb;serializer:json" json:"comments"`
	Attachments    []Attachment   `gorm:"type:jsonb;serializer:json" json:"attachments"`
	ActivityLog    []Activity     `gorm:"type:jsonb;serializer:json" json:"activityLog"`
	CreatedBy      UserSnapshot   `gorm:"type:jsonb;serializer:json" json:"createdBy"`
	Order          int            `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// SetAssignees replaces the assignee list and the primary assignee fields.
func (t *Task) SetAssignees(assignees []UserSnapshot) {
	if assignees == nil {
		assignees = []UserSnapshot{}
	}
	t.Assignees = assignees
	t.AssigneeName, t.AssigneeAvatar = nil, nil
	if len(assignees) > 0 {
		name, avatar := assignees[0].Name, assignees[0].Avatar
		t.AssigneeName, t.AssigneeAvatar = &name, &avatar
	}
}

// IsCreator reports whether userID created the task.
func (t *Task) IsCreator(userID uuid.UUID) bool {
	return t.CreatedBy.ID == userID.String()
}

// IsAssigned reports whether userID is among the assignees.
func (t *Task) IsAssigned(userID uuid.UUID) bool {
	id := userID.String()
	for _, a := range t.Assignees {
		if a.ID == id {
			return true
		}
	}
	return false
}

type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type Comment struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Author    UserSnapshot `json:"author"`
	CreatedAt time.Time    `json:"createdAt"`
}

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	StoragePath string `json:"storagePath"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
}

// Activity is one entry of the append-only task log.
type Activity struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// Activity actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionMoved     = "moved"
	ActionCommented = "commented"
	ActionSubtask   = "subtask"
	ActionAttached  = "attached"
)
