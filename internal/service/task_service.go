package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"solis/internal/livesync"
	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/notify"
	"solis/internal/permission"
	"solis/internal/repository"
	"solis/internal/sanitize"
	"solis/internal/storage"

	"github.com/google/uuid"
)

// TaskStore is the persistence the task service writes through.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, q repository.TaskQuery) ([]model.Task, error)
	CountInPartition(ctx context.Context, listID *uuid.UUID, status string) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}, entry model.Activity) error
	Append(ctx context.Context, id uuid.UUID, column string, item interface{}, entry model.Activity) error
	MutateSubtasks(ctx context.Context, id uuid.UUID, fn func([]model.Subtask) ([]model.Subtask, error), entry model.Activity) (*model.Task, error)
	MoveTask(ctx context.Context, id uuid.UUID, status string, position int, entry model.Activity) (*model.Task, error)
	Reposition(ctx context.Context, id uuid.UUID, place repository.Placement, fields map[string]interface{}, entry model.Activity) (*model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// TaskFeed receives optimistic pushes. *livesync.Feed[model.Task] implements it.
type TaskFeed interface {
	Upsert(task model.Task)
	Remove(key string)
	Resync(ctx context.Context)
}

type CreateTaskInput struct {
	Title       string
	Description string
	Department  string
	Priority    string
	ListID      *uuid.UUID
	AssigneeID  *uuid.UUID
	DueDate     *model.Date
	Notify      bool
}

// UpdateTaskInput carries only the fields to change; nil means untouched.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	Department   *string
	DueDate      *model.Date
	ClearDueDate bool
	AssigneeIDs  *[]uuid.UUID
	Order        *int
}

func (in UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil && in.Priority == nil &&
		in.Department == nil && in.DueDate == nil && !in.ClearDueDate && in.AssigneeIDs == nil && in.Order == nil
}

// TaskFilter narrows List. Empty fields do not filter.
type TaskFilter struct {
	ListID     *uuid.UUID
	Status     string
	Department string
	AssigneeID string
}

type AttachmentInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type TaskService struct {
	tasks      TaskStore
	users      UserLookup
	feed       TaskFeed
	objects    storage.Store
	notifier   notify.Notifier
	consoleURL string
	log        *logger.Logger
	now        func() time.Time

	notices sync.WaitGroup
}

func NewTaskService(tasks TaskStore, users UserLookup, feed TaskFeed, objects storage.Store, notifier notify.Notifier, consoleURL string, log *logger.Logger) *TaskService {
	return &TaskService{
		tasks:      tasks,
		users:      users,
		feed:       feed,
		objects:    objects,
		notifier:   notifier,
		consoleURL: strings.TrimRight(consoleURL, "/"),
		log:        log.Named("tasks"),
		now:        time.Now,
	}
}

func (s *TaskService) activity(actor *model.User, action string) model.Activity {
	return model.Activity{Action: action, Actor: actor.Name, Timestamp: s.now().UTC()}
}

// Create validates input, places the task at the end of the to_do partition
// and notifies the assignee when asked to.
func (s *TaskService) Create(ctx context.Context, actor *model.User, in CreateTaskInput) (*model.Task, error) {
	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, invalid("title", "el título es obligatorio")
	}
	if in.Department == "" {
		return nil, invalid("department", "el departamento es obligatorio")
	}
	if !permission.ValidDepartment(in.Department) {
		return nil, invalid("department", "departamento desconocido")
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !validPriority(priority) {
		return nil, invalid("priority", "prioridad desconocida")
	}

	if !allowed(actor, permission.CreateTasks) {
		return nil, ErrForbidden
	}

	var assignee *model.User
	if in.AssigneeID != nil {
		if *in.AssigneeID != actor.ID && !allowed(actor, permission.AssignTasks) {
			return nil, ErrForbidden
		}
		u, err := s.lookupAssignee(ctx, *in.AssigneeID)
		if err != nil {
			return nil, err
		}
		assignee = u
	}

	count, err := s.tasks.CountInPartition(ctx, in.ListID, model.StatusToDo)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task := &model.Task{
		ID:          uuid.New(),
		ListID:      in.ListID,
		Title:       title,
		Description: sanitize.HTML(in.Description),
		Status:      model.StatusToDo,
		Priority:    priority,
		Department:  in.Department,
		DueDate:     in.DueDate,
		Subtasks:    []model.Subtask{},
		Comments:    []model.Comment{},
		Attachments: []model.Attachment{},
		ActivityLog: []model.Activity{s.activity(actor, model.ActionCreated)},
		CreatedBy:   actor.Snapshot(),
		Order:       int(count),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var assignees []model.UserSnapshot
	if assignee != nil {
		assignees = append(assignees, assignee.Snapshot())
	}
	task.SetAssignees(assignees)

	s.feed.Upsert(*task)
	if err := s.tasks.Create(ctx, task); err != nil {
		s.feed.Resync(ctx)
		return nil, err
	}

	s.log.Info().Str("task_id", task.ID.String()).Str("actor", actor.ID.String()).Msg("task created")

	if assignee != nil && in.Notify {
		s.notifyAssignee(ctx, actor, assignee, *task)
	}
	return task, nil
}

// Update writes only the fields present in in. A status or order change goes
// through the repositioning path with the other fields in one transaction; a
// status change without an explicit order sends the task to the end of its
// new partition.
func (s *TaskService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	if in.empty() {
		return nil, invalid("body", "no hay campos para actualizar")
	}

	fields := make(map[string]interface{})
	if in.Title != nil {
		title := sanitize.Text(*in.Title)
		if title == "" {
			return nil, invalid("title", "el título es obligatorio")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = sanitize.HTML(*in.Description)
	}
	if in.Status != nil && !validStatus(*in.Status) {
		return nil, invalid("status", "estado desconocido")
	}
	if in.Priority != nil {
		if !validPriority(*in.Priority) {
			return nil, invalid("priority", "prioridad desconocida")
		}
		fields["priority"] = *in.Priority
	}
	if in.Department != nil {
		if !permission.ValidDepartment(*in.Department) {
			return nil, invalid("department", "departamento desconocido")
		}
		fields["department"] = *in.Department
	}
	if in.Order != nil && *in.Order < 0 {
		return nil, invalid("order", "el orden no puede ser negativo")
	}
	switch {
	case in.ClearDueDate:
		fields["due_date"] = nil
	case in.DueDate != nil:
		fields["due_date"] = *in.DueDate
	}

	current, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	optimistic := *current
	if in.AssigneeIDs != nil {
		if !allowed(actor, permission.AssignTasks) {
			return nil, ErrForbidden
		}
		snapshots := make([]model.UserSnapshot, 0, len(*in.AssigneeIDs))
		for _, uid := range *in.AssigneeIDs {
			u, err := s.lookupAssignee(ctx, uid)
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, u.Snapshot())
		}
		assigneeFields, err := repository.AssigneeFields(snapshots)
		if err != nil {
			return nil, err
		}
		for k, v := range assigneeFields {
			fields[k] = v
		}
		optimistic.SetAssignees(snapshots)
	}

	action := model.ActionUpdated
	if in.Status != nil && *in.Status != current.Status {
		action = model.ActionMoved
	}
	entry := s.activity(actor, action)

	applyOptimistic(&optimistic, in, fields, entry)

	if in.Status == nil && in.Order == nil {
		s.feed.Upsert(optimistic)
		if err := s.tasks.UpdateFields(ctx, id, fields, entry); err != nil {
			s.feed.Resync(ctx)
			return nil, err
		}
		return s.confirm(ctx, id)
	}

	place := repository.Placement{Status: current.Status, Position: in.Order}
	if in.Status != nil {
		place.Status = *in.Status
	}
	order, err := s.destination(ctx, current, place)
	if err != nil {
		return nil, err
	}
	optimistic.Status, optimistic.Order = place.Status, order
	s.feed.Upsert(optimistic)

	moved, err := s.tasks.Reposition(ctx, id, place, fields, entry)
	if err != nil {
		s.feed.Resync(ctx)
		return nil, err
	}
	s.feed.Upsert(*moved)
	return moved, nil
}

// MoveStatus sets status and order in one transaction.
func (s *TaskService) MoveStatus(ctx context.Context, actor *model.User, id uuid.UUID, status string, order int) (*model.Task, error) {
	if !validStatus(status) {
		return nil, invalid("status", "estado desconocido")
	}
	if order < 0 {
		return nil, invalid("order", "el orden no puede ser negativo")
	}

	current, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	position, err := s.destination(ctx, current, repository.Placement{Status: status, Position: &order})
	if err != nil {
		return nil, err
	}

	entry := s.activity(actor, model.ActionMoved)
	optimistic := *current
	optimistic.Status, optimistic.Order = status, position
	optimistic.ActivityLog = append(append([]model.Activity(nil), current.ActivityLog...), entry)
	s.feed.Upsert(optimistic)

	moved, err := s.tasks.MoveTask(ctx, id, status, order, entry)
	if err != nil {
		s.feed.Resync(ctx)
		return nil, err
	}
	s.feed.Upsert(*moved)
	return moved, nil
}

// Delete removes a task. Holders of canDeleteTasks and the task's creator may delete.
func (s *TaskService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !allowed(actor, permission.DeleteTasks) && !task.IsCreator(actor.ID) {
		return ErrForbidden
	}

	s.feed.Remove(id.String())
	if err := s.tasks.Delete(ctx, id); err != nil {
		s.feed.Resync(ctx)
		return err
	}
	s.log.Info().Str("task_id", id.String()).Str("actor", actor.ID.String()).Msg("task deleted")
	return nil
}

func (s *TaskService) AddComment(ctx context.Context, actor *model.User, id uuid.UUID, text string) (*model.Task, error) {
	text = sanitize.HTML(text)
	if text == "" {
		return nil, invalid("text", "el comentario está vacío")
	}
	current, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{ID: uuid.NewString(), Text: text, Author: actor.Snapshot(), CreatedAt: s.now().UTC()}
	entry := s.activity(actor, model.ActionCommented)

	optimistic := *current
	optimistic.Comments = append(append([]model.Comment(nil), current.Comments...), comment)
	return s.appendItem(ctx, id, "comments", comment, entry, optimistic)
}

func (s *TaskService) AddSubtask(ctx context.Context, actor *model.User, id uuid.UUID, title string) (*model.Task, error) {
	title = sanitize.Text(title)
	if title == "" {
		return nil, invalid("title", "el título es obligatorio")
	}
	current, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	subtask := model.Subtask{ID: uuid.NewString(), Title: title}
	entry := s.activity(actor, model.ActionSubtask)

	optimistic := *current
	optimistic.Subtasks = append(append([]model.Subtask(nil), current.Subtasks...), subtask)
	return s.appendItem(ctx, id, "subtasks", subtask, entry, optimistic)
}

func (s *TaskService) ToggleSubtask(ctx context.Context, actor *model.User, id uuid.UUID, subtaskID string) (*model.Task, error) {
	if _, err := s.visibleTask(ctx, actor, id); err != nil {
		return nil, err
	}

	task, err := s.tasks.MutateSubtasks(ctx, id, func(subtasks []model.Subtask) ([]model.Subtask, error) {
		out := append([]model.Subtask(nil), subtasks...)
		for i := range out {
			if out[i].ID == subtaskID {
				out[i].Done = !out[i].Done
				return out, nil
			}
		}
		return nil, ErrSubtaskNotFound
	}, s.activity(actor, model.ActionSubtask))
	if err != nil {
		return nil, err
	}
	s.feed.Upsert(*task)
	return task, nil
}

// AddAttachment uploads the file to the object store and records it on the task.
func (s *TaskService) AddAttachment(ctx context.Context, actor *model.User, id uuid.UUID, in AttachmentInput) (*model.Task, error) {
	name := path.Base(strings.ReplaceAll(in.Name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, invalid("file", "el archivo es obligatorio")
	}
	current, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	objectPath := fmt.Sprintf("tasks/%s/%s-%s", id, uuid.NewString(), name)
	url, err := s.objects.Put(ctx, storage.Object{Path: objectPath, ContentType: in.ContentType, Body: in.Body})
	if err != nil {
		return nil, err
	}

	attachment := model.Attachment{Name: name, URL: url, StoragePath: objectPath, Type: in.ContentType, Size: in.Size}
	entry := s.activity(actor, model.ActionAttached)

	optimistic := *current
	optimistic.Attachments = append(append([]model.Attachment(nil), current.Attachments...), attachment)
	task, err := s.appendItem(ctx, id, "attachments", attachment, entry, optimistic)
	if err != nil {
		if delErr := s.objects.Delete(ctx, objectPath); delErr != nil {
			s.log.Warn().Err(delErr).Str("path", objectPath).Msg("orphaned attachment object")
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Task, error) {
	return s.visibleTask(ctx, actor, id)
}

// List returns the tasks the actor may see. Without canViewAllTasks that is
// the actor's department plus tasks assigned to or created by the actor.
func (s *TaskService) List(ctx context.Context, actor *model.User, f TaskFilter) ([]model.Task, error) {
	q := repository.TaskQuery{
		ListID:     f.ListID,
		Status:     f.Status,
		Department: f.Department,
		AssigneeID: f.AssigneeID,
	}
	if !allowed(actor, permission.ViewAllTasks) {
		q.VisibleTo = &repository.Viewer{UserID: actor.ID, Department: actor.Department}
	}
	return s.tasks.List(ctx, q)
}

// LiveQuery describes the actor's filtered task view for the tasks feed.
func (s *TaskService) LiveQuery(actor *model.User, f TaskFilter) livesync.Query[model.Task] {
	key := fmt.Sprintf("actor=%s list=%v status=%s department=%s assignee=%s",
		actor.ID, f.ListID, f.Status, f.Department, f.AssigneeID)
	return livesync.Query[model.Task]{
		Key: key,
		Fetch: func(ctx context.Context) ([]model.Task, error) {
			return s.List(ctx, actor, f)
		},
		Match: func(t model.Task) bool {
			if f.ListID != nil && (t.ListID == nil || *t.ListID != *f.ListID) {
				return false
			}
			if f.Status != "" && t.Status != f.Status {
				return false
			}
			if f.Department != "" && t.Department != f.Department {
				return false
			}
			if f.AssigneeID != "" {
				id, err := uuid.Parse(f.AssigneeID)
				if err != nil || !t.IsAssigned(id) {
					return false
				}
			}
			return canSee(actor, &t)
		},
	}
}

func (s *TaskService) visibleTask(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, task) {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *TaskService) appendItem(ctx context.Context, id uuid.UUID, column string, item interface{}, entry model.Activity, optimistic model.Task) (*model.Task, error) {
	optimistic.ActivityLog = append(append([]model.Activity(nil), optimistic.ActivityLog...), entry)
	optimistic.UpdatedAt = entry.Timestamp
	s.feed.Upsert(optimistic)

	if err := s.tasks.Append(ctx, id, column, item, entry); err != nil {
		s.feed.Resync(ctx)
		return nil, err
	}
	return s.confirm(ctx, id)
}

// confirm rereads the task after a write so callers get the stored state.
func (s *TaskService) confirm(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.feed.Upsert(*task)
	return task, nil
}

func (s *TaskService) lookupAssignee(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, invalid("assigneeId", "usuario no encontrado o inactivo")
	}
	return u, nil
}

// destination is the position the store will give current under place. It
// follows Reposition so optimistic pushes never pair a new status with a
// stale order.
func (s *TaskService) destination(ctx context.Context, current *model.Task, place repository.Placement) (int, error) {
	if place.Status == current.Status && place.Position == nil {
		return current.Order, nil
	}
	count, err := s.tasks.CountInPartition(ctx, current.ListID, place.Status)
	if err != nil {
		return 0, err
	}
	if place.Status == current.Status && count > 0 {
		count--
	}
	end := int(count)
	if place.Position != nil && *place.Position < end {
		return *place.Position, nil
	}
	return end, nil
}

// Wait blocks until pending assignment notices are sent.
func (s *TaskService) Wait() {
	s.notices.Wait()
}

// notifyAssignee sends the assignment notice in the background. Failures are
// logged and never reach the caller.
func (s *TaskService) notifyAssignee(ctx context.Context, actor, assignee *model.User, task model.Task) {
	params := map[string]string{
		"to_name":     assignee.Name,
		"task_title":  task.Title,
		"assigned_by": actor.Name,
		"priority":    task.Priority,
		"link":        s.consoleURL + "/tareas/" + task.ID.String(),
	}
	if task.DueDate != nil {
		params["due_date"] = task.DueDate.String()
	}

	msg := notify.Message{TemplateID: notify.TemplateTaskAssigned, To: assignee.Email, Params: params}

	s.notices.Add(1)
	go func() {
		defer s.notices.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.log.Warn().Err(err).Str("task_id", task.ID.String()).Str("to", msg.To).Msg("assignment notification failed")
		}
	}()
}

// applyOptimistic mirrors fields onto t the way the store will.
func applyOptimistic(t *model.Task, in UpdateTaskInput, fields map[string]interface{}, entry model.Activity) {
	if v, ok := fields["title"].(string); ok {
		t.Title = v
	}
	if v, ok := fields["description"].(string); ok {
		t.Description = v
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Department != nil {
		t.Department = *in.Department
	}
	switch {
	case in.ClearDueDate:
		t.DueDate = nil
	case in.DueDate != nil:
		d := *in.DueDate
		t.DueDate = &d
	}
	t.ActivityLog = append(append([]model.Activity(nil), t.ActivityLog...), entry)
	t.UpdatedAt = entry.Timestamp
}

func validStatus(s string) bool {
	for _, v := range model.Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func validPriority(p string) bool {
	for _, v := range model.Priorities {
		if v == p {
			return true
		}
	}
	return false
}
