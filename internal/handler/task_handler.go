package handler

import (
	"context"
	"net/http"

	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/projection"
	"solis/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskActions is the task service surface behind the task routes.
type TaskActions interface {
	Create(ctx context.Context, actor *model.User, in service.CreateTaskInput) (*model.Task, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, actor *model.User, f service.TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, in service.UpdateTaskInput) (*model.Task, error)
	MoveStatus(ctx context.Context, actor *model.User, id uuid.UUID, status string, order int) (*model.Task, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
	AddComment(ctx context.Context, actor *model.User, id uuid.UUID, text string) (*model.Task, error)
	AddSubtask(ctx context.Context, actor *model.User, id uuid.UUID, title string) (*model.Task, error)
	ToggleSubtask(ctx context.Context, actor *model.User, id uuid.UUID, subtaskID string) (*model.Task, error)
	AddAttachment(ctx context.Context, actor *model.User, id uuid.UUID, in service.AttachmentInput) (*model.Task, error)
}

type TaskHandler struct {
	tasks TaskActions
	log   *logger.Logger
}

func NewTaskHandler(tasks TaskActions, log *logger.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log.Named("tasks")}
}

// TaskRequest is the body of a task creation.
type TaskRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Department  string      `json:"department"`
	Priority    string      `json:"priority"`
	ListID      *uuid.UUID  `json:"listId"`
	AssigneeID  *uuid.UUID  `json:"assigneeId"`
	DueDate     *model.Date `json:"dueDate"`
	Notify      bool        `json:"notify"`
}

// TaskUpdateRequest carries only the fields to change.
type TaskUpdateRequest struct {
	Title        *string      `json:"title"`
	Description  *string      `json:"description"`
	Status       *string      `json:"status"`
	Priority     *string      `json:"priority"`
	Department   *string      `json:"department"`
	DueDate      *model.Date  `json:"dueDate"`
	ClearDueDate bool         `json:"clearDueDate"`
	AssigneeIDs  *[]uuid.UUID `json:"assigneeIds"`
	Order        *int         `json:"order"`
}

// TaskMoveRequest moves a task to a status column at a position.
type TaskMoveRequest struct {
	Status string `json:"status" binding:"required"`
	Order  *int   `json:"order" binding:"required,min=0"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

type SubtaskRequest struct {
	Title string `json:"title" binding:"required"`
}

type taskListQuery struct {
	ListID     string `form:"listId" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	Department string `form:"department"`
	Assignee   string `form:"assignee" binding:"omitempty,uuid"`
}

func (q taskListQuery) filter() service.TaskFilter {
	f := service.TaskFilter{Status: q.Status, Department: q.Department, AssigneeID: q.Assignee}
	if id, err := uuid.Parse(q.ListID); err == nil {
		f.ListID = &id
	}
	return f
}

// Create godoc
// @Summary      Create a task
// @Description  The task is placed at the end of the to_do column of its list.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body TaskRequest true "Task"
// @Success      201 {object} model.Task
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), user, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
		Priority:    req.Priority,
		ListID:      req.ListID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Notify:      req.Notify,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) List(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var q taskListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), user, q.filter())
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// View godoc
// @Summary      Project visible tasks for a view mode
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        mode query string false "kanban, list or calendar"
// @Param        status query string false "Status"
// @Param        priority query string false "Priority"
// @Param        department query string false "Department"
// @Param        assignee query string false "Assignee ID"
// @Param        q query string false "Search text"
// @Success      200 {object} projection.View
// @Router       /tasks/view [get]
func (h *TaskHandler) View(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	mode, err := projection.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: "mode"})
		return
	}
	var filters projection.Filters
	if err := c.ShouldBindQuery(&filters); err != nil {
		bindError(c, err)
		return
	}
	var scope taskListQuery
	if err := c.ShouldBindQuery(&scope); err != nil {
		bindError(c, err)
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), user, service.TaskFilter{ListID: scope.filter().ListID})
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve tasks")
		return
	}
	c.JSON(http.StatusOK, projection.Project(tasks, filters, mode))
}

func (h *TaskHandler) GetByID(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// Update godoc
// @Summary      Update task fields
// @Description  Only the fields present in the body are written.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body TaskUpdateRequest true "Fields to change"
// @Success      200 {object} model.Task
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), user, id, service.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		Department:   req.Department,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		AssigneeIDs:  req.AssigneeIDs,
		Order:        req.Order,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Move(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TaskMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.tasks.MoveStatus(c.Request.Context(), user, id, req.Status, *req.Order)
	if err != nil {
		respondError(c, h.log, err, "Failed to move task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary      Delete a task
// @Description  Allowed with canDeleteTasks or for the task's creator.
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err, "Failed to delete task")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) AddComment(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.tasks.AddComment(c.Request.Context(), user, id, req.Text)
	if err != nil {
		respondError(c, h.log, err, "Failed to add comment")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) AddSubtask(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.tasks.AddSubtask(c.Request.Context(), user, id, req.Title)
	if err != nil {
		respondError(c, h.log, err, "Failed to add subtask")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.ToggleSubtask(c.Request.Context(), user, id, c.Param("subtaskId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to toggle subtask")
		return
	}
	c.JSON(http.StatusOK, task)
}

// AddAttachment godoc
// @Summary      Attach a file to a task
// @Tags         Tasks
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        file formData file true "File"
// @Success      201 {object} model.Task
// @Router       /tasks/{id}/attachments [post]
func (h *TaskHandler) AddAttachment(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "File is required", Field: "file"})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.log, err, "Failed to read upload")
		return
	}
	defer file.Close()

	task, err := h.tasks.AddAttachment(c.Request.Context(), user, id, service.AttachmentInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to attach file")
		return
	}
	c.JSON(http.StatusCreated, task)
}
