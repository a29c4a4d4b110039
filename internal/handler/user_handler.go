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

// Directory is the user service surface behind the profile and admin routes.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, department string, activeOnly bool) ([]model.User, error)
	OrgChart(ctx context.Context) ([]projection.Department, error)
	UpdateProfile(ctx context.Context, actor *model.User, in service.ProfileInput) (*model.User, error)
	ChangeRole(ctx context.Context, actor *model.User, id uuid.UUID, role string) (*model.User, error)
	SetPermissions(ctx context.Context, actor *model.User, id uuid.UUID, perms model.Permissions) (*model.User, error)
	SetActive(ctx context.Context, actor *model.User, id uuid.UUID, active bool) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

type UserHandler struct {
	users Directory
	log   *logger.Logger
}

func NewUserHandler(users Directory, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: log.Named("users")}
}

type ProfileRequest struct {
	Name       *string `json:"name"`
	Avatar     *string `json:"avatar"`
	Department *string `json:"department" binding:"omitempty,department"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

type ActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type userListQuery struct {
	Department string `form:"department"`
	ActiveOnly bool   `form:"active"`
}

// Me returns the caller's effective profile.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary      Edit own profile
// @Description  Name, avatar and department only. Role and permissions are never changed here.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ProfileRequest true "Fields to change"
// @Success      200 {object} model.User
// @Failure      400 {object} ErrorResponse
// @Router       /users/me [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), user, service.ProfileInput{
		Name:       req.Name,
		Avatar:     req.Avatar,
		Department: req.Department,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) List(c *gin.Context) {
	var q userListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	users, err := h.users.List(c.Request.Context(), q.Department, q.ActiveOnly)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// OrgChart godoc
// @Summary      Organizational chart
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} projection.Department
// @Router       /org-chart [get]
func (h *UserHandler) OrgChart(c *gin.Context) {
	chart, err := h.users.OrgChart(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to build org chart")
		return
	}
	c.JSON(http.StatusOK, chart)
}

// ChangeRole godoc
// @Summary      Change a user's role
// @Description  Permissions are reseeded from the new role.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body RoleRequest true "Role"
// @Success      200 {object} model.User
// @Failure      403 {object} ErrorResponse
// @Router       /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.users.ChangeRole(c.Request.Context(), user, id, req.Role)
	if err != nil {
		respondError(c, h.log, err, "Failed to change role")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) SetPermissions(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var perms model.Permissions
	if err := c.ShouldBindJSON(&perms); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.users.SetPermissions(c.Request.Context(), user, id, perms)
	if err != nil {
		respondError(c, h.log, err, "Failed to update permissions")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) SetActive(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.users.SetActive(c.Request.Context(), user, id, *req.IsActive)
	if err != nil {
		respondError(c, h.log, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err, "Failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}
