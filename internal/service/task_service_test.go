package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"solis/internal/livesync"
	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/notify"
	"solis/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	tasks    *MockTaskStore
	users    *MockUserStore
	objects  *MockObjectStore
	notifier *MockNotifier
	feed     *recordingFeed
	svc      *TaskService
}

func newTaskFixture() *taskFixture {
	f := &taskFixture{
		tasks:    new(MockTaskStore),
		users:    new(MockUserStore),
		objects:  new(MockObjectStore),
		notifier: new(MockNotifier),
		feed:     &recordingFeed{},
	}
	f.svc = NewTaskService(f.tasks, f.users, f.feed, f.objects, f.notifier, "https://consola.solis.mx/", logger.Nop())
	f.svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return f
}

func existingTask(creator *model.User, department string) *model.Task {
	t := &model.Task{
		ID:          uuid.New(),
		Title:       "Revisar contrato",
		Status:      model.StatusToDo,
		Priority:    model.PriorityNormal,
		Department:  department,
		CreatedBy:   creator.Snapshot(),
		ActivityLog: []model.Activity{{Action: model.ActionCreated, Actor: creator.Name}},
	}
	t.SetAssignees(nil)
	return t
}

func TestTaskCreate_RejectsInvalidInputBeforeIO(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)

	tests := []struct {
		name  string
		input CreateTaskInput
		field string
	}{
		{"blank title", CreateTaskInput{Title: "   ", Department: model.DepartmentClosers}, "title"},
		{"missing department", CreateTaskInput{Title: "Llamar cliente"}, "department"},
		{"unknown department", CreateTaskInput{Title: "Llamar cliente", Department: "legal"}, "department"},
		{"unknown priority", CreateTaskInput{Title: "Llamar cliente", Department: model.DepartmentClosers, Priority: "asap"}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), actor, tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	f.tasks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.feed.upserts)
}

func TestTaskCreate_UnassignedTaskSkipsNotification(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleLider, model.DepartmentClosers)

	f.tasks.On("CountInPartition", mock.Anything, (*uuid.UUID)(nil), model.StatusToDo).Return(int64(3), nil)
	f.tasks.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

	task, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title:      "Preparar expediente",
		Department: model.DepartmentClosers,
		Notify:     true,
	})

	require.NoError(t, err)
	assert.Equal(t, model.StatusToDo, task.Status)
	assert.Equal(t, model.PriorityNormal, task.Priority)
	assert.Equal(t, 3, task.Order)
	assert.NotNil(t, task.Assignees)
	assert.Empty(t, task.Assignees)
	assert.Nil(t, task.AssigneeName)
	assert.Nil(t, task.AssigneeAvatar)
	assert.Equal(t, actor.ID.String(), task.CreatedBy.ID)
	require.Len(t, task.ActivityLog, 1)
	assert.Equal(t, model.ActionCreated, task.ActivityLog[0].Action)

	require.Len(t, f.feed.upserts, 1)
	assert.Equal(t, task.ID, f.feed.upserts[0].ID)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestTaskCreate_NotifiesAssignee(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleGerente, model.DepartmentClosers)
	assignee := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	due := model.NewDate(2025, 3, 14)

	f.users.On("GetByID", mock.Anything, assignee.ID).Return(assignee, nil)
	f.tasks.On("CountInPartition", mock.Anything, mock.Anything, model.StatusToDo).Return(int64(0), nil)
	f.tasks.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)
	f.notifier.On("Send", mock.Anything, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.TemplateID == notify.TemplateTaskAssigned &&
			msg.To == assignee.Email &&
			msg.Params["due_date"] == "2025-03-14" &&
			msg.Params["assigned_by"] == actor.Name
	})).Return(nil).Once()

	task, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title:      "Firmar poder",
		Department: model.DepartmentClosers,
		Priority:   model.PriorityUrgent,
		AssigneeID: &assignee.ID,
		DueDate:    &due,
		Notify:     true,
	})
	f.svc.Wait()

	require.NoError(t, err)
	require.Len(t, task.Assignees, 1)
	require.NotNil(t, task.AssigneeName)
	assert.Equal(t, assignee.Name, *task.AssigneeName)
	assert.Equal(t, assignee.Avatar, *task.AssigneeAvatar)
	f.notifier.AssertExpectations(t)
}

func TestTaskCreate_NotificationFailureDoesNotFailCreate(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleGerente, model.DepartmentClosers)
	assignee := userWithRole(model.RoleOperativo, model.DepartmentClosers)

	f.users.On("GetByID", mock.Anything, assignee.ID).Return(assignee, nil)
	f.tasks.On("CountInPartition", mock.Anything, mock.Anything, model.StatusToDo).Return(int64(0), nil)
	f.tasks.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("HTTP 400: bad template"))

	task, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title: "Firmar poder", Department: model.DepartmentClosers, AssigneeID: &assignee.ID, Notify: true,
	})

	require.NoError(t, err)
	assert.NotNil(t, task)
	f.svc.Wait()
	f.notifier.AssertExpectations(t)
}

func TestTaskCreate_SlowNotificationDoesNotDelayCreate(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleGerente, model.DepartmentClosers)
	assignee := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	release := make(chan struct{})

	f.users.On("GetByID", mock.Anything, assignee.ID).Return(assignee, nil)
	f.tasks.On("CountInPartition", mock.Anything, mock.Anything, model.StatusToDo).Return(int64(0), nil)
	f.tasks.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) { <-release })

	task, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title: "Firmar poder", Department: model.DepartmentClosers, AssigneeID: &assignee.ID, Notify: true,
	})

	require.NoError(t, err)
	assert.NotNil(t, task)
	close(release)
	f.svc.Wait()
	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestTaskCreate_AssigningOthersRequiresPermission(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	other := uuid.New()

	_, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title: "Llamar cliente", Department: model.DepartmentClosers, AssigneeID: &other,
	})

	assert.ErrorIs(t, err, ErrForbidden)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestTaskCreate_InactiveAssigneeRejected(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	assignee := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	assignee.IsActive = false
	f.users.On("GetByID", mock.Anything, assignee.ID).Return(assignee, nil)

	_, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title: "Llamar cliente", Department: model.DepartmentClosers, AssigneeID: &assignee.ID,
	})

	assert.True(t, IsValidation(err))
}

func TestTaskCreate_FailedWriteResyncsLiveViews(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	stored := []model.Task{*existingTask(actor, model.DepartmentAdmin)}

	feed := livesync.NewFeed("tasks", func(task model.Task) string { return task.ID.String() },
		func(a, b model.Task) bool { return a.Order < b.Order }, logger.Nop())
	f.svc.feed = feed

	f.tasks.On("List", mock.Anything, mock.Anything).Return(stored, nil)
	f.tasks.On("CountInPartition", mock.Anything, mock.Anything, model.StatusToDo).Return(int64(1), nil)
	f.tasks.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	sub, err := feed.Subscribe(context.Background(), "view-1", f.svc.LiveQuery(actor, TaskFilter{}))
	require.NoError(t, err)
	defer sub.Close()
	require.Len(t, sub.Items(), 1)

	_, err = f.svc.Create(context.Background(), actor, CreateTaskInput{Title: "Nueva", Department: model.DepartmentAdmin})

	require.Error(t, err)
	items := sub.Items()
	require.Len(t, items, 1)
	assert.Equal(t, stored[0].ID, items[0].ID)
	f.tasks.AssertNumberOfCalls(t, "List", 2)
}

func TestTaskUpdate_WritesOnlyChangedFields(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	current := existingTask(userWithRole(model.RoleLider, model.DepartmentClosers), model.DepartmentClosers)
	updated := *current
	updated.Priority = model.PriorityHigh

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
	f.tasks.On("GetByID", mock.Anything, current.ID).Return(&updated, nil).Once()
	f.tasks.On("UpdateFields", mock.Anything, current.ID,
		map[string]interface{}{"priority": model.PriorityHigh},
		mock.MatchedBy(func(a model.Activity) bool { return a.Action == model.ActionUpdated && a.Actor == actor.Name }),
	).Return(nil).Once()

	high := model.PriorityHigh
	task, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Priority: &high})

	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	f.tasks.AssertExpectations(t)

	require.Len(t, f.feed.upserts, 2)
	optimistic := f.feed.upserts[0]
	assert.Equal(t, model.PriorityHigh, optimistic.Priority)
	assert.Equal(t, current.Title, optimistic.Title)
	assert.Len(t, optimistic.ActivityLog, 2)
	assert.Len(t, current.ActivityLog, 1)
}

func TestTaskUpdate_StatusChangeRepositions(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleSupervisor, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentClosers)
	moved := *current
	moved.Status, moved.Order = model.StatusReview, 2

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
	f.tasks.On("CountInPartition", mock.Anything, (*uuid.UUID)(nil), model.StatusReview).Return(int64(2), nil)
	f.tasks.On("Reposition", mock.Anything, current.ID,
		repository.Placement{Status: model.StatusReview},
		map[string]interface{}{},
		mock.MatchedBy(func(a model.Activity) bool { return a.Action == model.ActionMoved }),
	).Return(&moved, nil).Once()

	review := model.StatusReview
	task, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Status: &review})

	require.NoError(t, err)
	assert.Equal(t, 2, task.Order)
	f.tasks.AssertExpectations(t)
	f.tasks.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// the optimistic push already carries the destination order
	require.Len(t, f.feed.upserts, 2)
	assert.Equal(t, model.StatusReview, f.feed.upserts[0].Status)
	assert.Equal(t, 2, f.feed.upserts[0].Order)
}

func TestTaskUpdate_StatusAndFieldsShareOneWrite(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)
	current.Order = 1
	moved := *current
	moved.Status, moved.Title = model.StatusDone, "Cerrado"

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
	f.tasks.On("CountInPartition", mock.Anything, (*uuid.UUID)(nil), model.StatusDone).Return(int64(5), nil)
	f.tasks.On("Reposition", mock.Anything, current.ID,
		mock.MatchedBy(func(p repository.Placement) bool {
			return p.Status == model.StatusDone && p.Position != nil && *p.Position == 0
		}),
		map[string]interface{}{"title": "Cerrado"},
		mock.Anything,
	).Return(&moved, nil).Once()

	done, title, first := model.StatusDone, "Cerrado", 0
	_, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Status: &done, Title: &title, Order: &first})

	require.NoError(t, err)
	f.tasks.AssertExpectations(t)
	assert.Equal(t, 0, f.feed.upserts[0].Order)
	assert.Equal(t, "Cerrado", f.feed.upserts[0].Title)
}

func TestTaskUpdate_OrderPastEndIsClamped(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)
	moved := *current
	moved.Order = 2

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
	// three tasks share the partition, current included
	f.tasks.On("CountInPartition", mock.Anything, (*uuid.UUID)(nil), model.StatusToDo).Return(int64(3), nil)
	f.tasks.On("Reposition", mock.Anything, current.ID, mock.Anything, map[string]interface{}{}, mock.Anything).
		Return(&moved, nil).Once()

	far := 40
	_, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Order: &far})

	require.NoError(t, err)
	assert.Equal(t, model.StatusToDo, f.feed.upserts[0].Status)
	assert.Equal(t, 2, f.feed.upserts[0].Order)
}

func TestTaskUpdate_FailedRepositionResyncs(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
	f.tasks.On("CountInPartition", mock.Anything, mock.Anything, model.StatusDone).Return(int64(0), nil)
	f.tasks.On("Reposition", mock.Anything, current.ID, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("deadlock detected"))

	done := model.StatusDone
	_, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Status: &done})

	require.Error(t, err)
	assert.Equal(t, 1, f.feed.resyncs)
}

func TestTaskUpdate_FailedWriteResyncs(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
	f.tasks.On("UpdateFields", mock.Anything, current.ID, mock.Anything, mock.Anything).Return(errors.New("timeout"))

	title := "Otro título"
	_, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Title: &title})

	require.Error(t, err)
	assert.Equal(t, 1, f.feed.resyncs)
	require.Len(t, f.feed.upserts, 1)
	assert.Equal(t, "Otro título", f.feed.upserts[0].Title)
}

func TestTaskUpdate_EmptyInputRejected(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)

	_, err := f.svc.Update(context.Background(), actor, uuid.New(), UpdateTaskInput{})

	assert.True(t, IsValidation(err))
	f.tasks.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestTaskUpdate_HiddenTaskForbidden(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentOpeners)
	current := existingTask(userWithRole(model.RoleDirector, model.DepartmentAdmin), model.DepartmentFinanzas)
	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)

	title := "x"
	_, err := f.svc.Update(context.Background(), actor, current.ID, UpdateTaskInput{Title: &title})

	assert.ErrorIs(t, err, ErrForbidden)
	f.tasks.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskDelete_OperativoCannotDeleteOthersTasks(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	require.False(t, actor.Permissions.CanDeleteTasks)

	current := existingTask(userWithRole(model.RoleLider, model.DepartmentClosers), model.DepartmentClosers)
	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)

	err := f.svc.Delete(context.Background(), actor, current.ID)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, f.feed.removed)
	f.tasks.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestTaskDelete_CreatorMayDelete(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	current := existingTask(actor, model.DepartmentClosers)
	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.tasks.On("Delete", mock.Anything, current.ID).Return(nil)

	err := f.svc.Delete(context.Background(), actor, current.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{current.ID.String()}, f.feed.removed)
}

func TestTaskDelete_NotFound(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	id := uuid.New()
	f.tasks.On("GetByID", mock.Anything, id).Return(nil, repository.ErrTaskNotFound)

	err := f.svc.Delete(context.Background(), actor, id)

	assert.True(t, IsNotFound(err))
}

func TestTaskList_RestrictsVisibilityWithoutViewAll(t *testing.T) {
	f := newTaskFixture()
	operativo := userWithRole(model.RoleOperativo, model.DepartmentOpeners)
	director := userWithRole(model.RoleDirector, model.DepartmentAdmin)

	f.tasks.On("List", mock.Anything, mock.MatchedBy(func(q repository.TaskQuery) bool {
		return q.VisibleTo != nil && q.VisibleTo.UserID == operativo.ID && q.VisibleTo.Department == model.DepartmentOpeners
	})).Return([]model.Task{}, nil).Once()
	f.tasks.On("List", mock.Anything, mock.MatchedBy(func(q repository.TaskQuery) bool {
		return q.VisibleTo == nil && q.Status == model.StatusDone
	})).Return([]model.Task{}, nil).Once()

	_, err := f.svc.List(context.Background(), operativo, TaskFilter{})
	require.NoError(t, err)
	_, err = f.svc.List(context.Background(), director, TaskFilter{Status: model.StatusDone})
	require.NoError(t, err)

	f.tasks.AssertExpectations(t)
}

func TestTaskLiveQuery_MatchFollowsFilterAndVisibility(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentOpeners)
	q := f.svc.LiveQuery(actor, TaskFilter{Status: model.StatusToDo})

	own := existingTask(actor, model.DepartmentFinanzas)
	sameDept := existingTask(userWithRole(model.RoleLider, model.DepartmentOpeners), model.DepartmentOpeners)
	foreign := existingTask(userWithRole(model.RoleLider, model.DepartmentFinanzas), model.DepartmentFinanzas)
	done := existingTask(actor, model.DepartmentOpeners)
	done.Status = model.StatusDone

	assert.True(t, q.Match(*own))
	assert.True(t, q.Match(*sameDept))
	assert.False(t, q.Match(*foreign))
	assert.False(t, q.Match(*done))
}

func TestTaskMoveStatus_ConfirmsStoredTask(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)
	moved := *current
	moved.Status, moved.Order = model.StatusInProgress, 0

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.tasks.On("CountInPartition", mock.Anything, (*uuid.UUID)(nil), model.StatusInProgress).Return(int64(4), nil)
	f.tasks.On("MoveTask", mock.Anything, current.ID, model.StatusInProgress, 0, mock.Anything).Return(&moved, nil)

	task, err := f.svc.MoveStatus(context.Background(), actor, current.ID, model.StatusInProgress, 0)

	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, task.Status)
	require.Len(t, f.feed.upserts, 2)
	assert.Equal(t, model.StatusInProgress, f.feed.upserts[0].Status)
}

func TestTaskToggleSubtask_UnknownSubtask(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)
	current.Subtasks = []model.Subtask{{ID: "s1", Title: "Copia INE"}}

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.tasks.On("MutateSubtasks", mock.Anything, current.ID, mock.Anything, mock.Anything).
		Return(nil, ErrSubtaskNotFound).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func([]model.Subtask) ([]model.Subtask, error))
			_, err := fn(current.Subtasks)
			assert.ErrorIs(t, err, ErrSubtaskNotFound)
			out, err := fn([]model.Subtask{{ID: "missing"}})
			assert.Nil(t, out)
			assert.ErrorIs(t, err, ErrSubtaskNotFound)
		})

	_, err := f.svc.ToggleSubtask(context.Background(), actor, current.ID, "nope")

	assert.ErrorIs(t, err, ErrSubtaskNotFound)
	assert.False(t, current.Subtasks[0].Done)
}

func TestTaskAddComment_AppendsSanitizedText(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleOperativo, model.DepartmentClosers)
	current := existingTask(actor, model.DepartmentClosers)

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.tasks.On("Append", mock.Anything, current.ID, "comments",
		mock.MatchedBy(func(c model.Comment) bool { return c.Text == "<b>listo</b>" && c.Author.ID == actor.ID.String() }),
		mock.Anything,
	).Return(nil).Once()

	_, err := f.svc.AddComment(context.Background(), actor, current.ID, `<b>listo</b><script>alert(1)</script>`)

	require.NoError(t, err)
	f.tasks.AssertExpectations(t)
}

func TestTaskAddAttachment_RemovesObjectWhenAppendFails(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleDirector, model.DepartmentAdmin)
	current := existingTask(actor, model.DepartmentAdmin)

	f.tasks.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	f.objects.On("Put", mock.Anything, mock.AnythingOfType("storage.Object")).Return("https://files/x", nil)
	f.tasks.On("Append", mock.Anything, current.ID, "attachments", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.objects.On("Delete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "tasks/"+current.ID.String()+"/")
	})).Return(nil).Once()

	_, err := f.svc.AddAttachment(context.Background(), actor, current.ID, AttachmentInput{
		Name: `C:\docs\poder.pdf`, ContentType: "application/pdf", Size: 10, Body: nopReader{},
	})

	require.Error(t, err)
	f.objects.AssertExpectations(t)
	assert.Equal(t, 1, f.feed.resyncs)
}

func TestTaskCreate_MirrorShowsStoredShape(t *testing.T) {
	f := newTaskFixture()
	actor := userWithRole(model.RoleGerente, model.DepartmentFinanzas)
	feed := livesync.NewFeed("tasks", func(task model.Task) string { return task.ID.String() },
		func(a, b model.Task) bool { return a.Order < b.Order }, logger.Nop())
	f.svc.feed = feed

	f.tasks.On("List", mock.Anything, mock.Anything).Return([]model.Task{}, nil)
	f.tasks.On("CountInPartition", mock.Anything, (*uuid.UUID)(nil), model.StatusToDo).Return(int64(0), nil)
	f.tasks.On("Create", mock.Anything, mock.Anything).Return(nil)

	sub, err := feed.Subscribe(context.Background(), "view-1",
		f.svc.LiveQuery(actor, TaskFilter{Department: model.DepartmentFinanzas}))
	require.NoError(t, err)
	defer sub.Close()

	created, err := f.svc.Create(context.Background(), actor, CreateTaskInput{
		Title: "Conciliar pagos", Department: model.DepartmentFinanzas, Priority: model.PriorityUrgent,
	})
	require.NoError(t, err)

	items := sub.Items()
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, model.DepartmentFinanzas, items[0].Department)
	assert.Equal(t, model.PriorityUrgent, items[0].Priority)
	assert.Equal(t, model.StatusToDo, items[0].Status)
	assert.Equal(t, actor.Snapshot(), items[0].CreatedBy)
}
