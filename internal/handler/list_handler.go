package handler

import (
	"context"
	"net/http"

	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/permission"
	"solis/internal/sanitize"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListStore is the task list repository.
type ListStore interface {
	Create(ctx context.Context, list *model.TaskList) error
	GetAll(ctx context.Context, department string) ([]model.TaskList, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.TaskList, error)
	Update(ctx context.Context, list *model.TaskList) error
}

type ListHandler struct {
	lists ListStore
	log   *logger.Logger
}

func NewListHandler(lists ListStore, log *logger.Logger) *ListHandler {
	return &ListHandler{lists: lists, log: log.Named("lists")}
}

type CreateListRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Department  string `json:"department" binding:"omitempty,department"`
}

type UpdateListRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Department  *string `json:"department" binding:"omitempty,department"`
}

// Create adds a task list owned by the caller.
func (h *ListHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	if !permission.Allows(user.Permissions, permission.CreateTasks) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You don't have permission to create lists"})
		return
	}

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	title := sanitize.Text(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Title is required", Field: "title"})
		return
	}
	dept := req.Department
	if dept == "" {
		dept = user.Department
	}

	list := &model.TaskList{
		ID:          uuid.New(),
		Title:       title,
		Description: sanitize.Text(req.Description),
		Department:  dept,
		OwnerID:     user.ID,
	}
	if err := h.lists.Create(c.Request.Context(), list); err != nil {
		respondError(c, h.log, err, "Failed to create list")
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *ListHandler) GetAll(c *gin.Context) {
	lists, err := h.lists.GetAll(c.Request.Context(), c.Query("department"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve lists")
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *ListHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.lists.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve list")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Update edits a list. Only its owner or someone who sees every task may.
func (h *ListHandler) Update(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	list, err := h.lists.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve list")
		return
	}
	if list.OwnerID != user.ID && !permission.Allows(user.Permissions, permission.ViewAllTasks) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You don't have permission to edit this list"})
		return
	}

	if req.Title != nil {
		title := sanitize.Text(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Title is required", Field: "title"})
			return
		}
		list.Title = title
	}
	if req.Description != nil {
		list.Description = sanitize.Text(*req.Description)
	}
	if req.Department != nil {
		list.Department = *req.Department
	}

	if err := h.lists.Update(c.Request.Context(), list); err != nil {
		respondError(c, h.log, err, "Failed to update list")
		return
	}
	c.JSON(http.StatusOK, list)
}
