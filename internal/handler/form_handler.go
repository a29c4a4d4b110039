package handler

import (
	"context"
	"net/http"

	"solis/internal/logger"
	"solis/internal/middleware"
	"solis/internal/model"
	"solis/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Forms is the form service surface behind the manager and public routes.
type Forms interface {
	CreateTemplate(ctx context.Context, actor *model.User, in service.TemplateInput) (*model.FormTemplate, error)
	UpdateTemplate(ctx context.Context, actor *model.User, id uuid.UUID, in service.TemplateInput) (*model.FormTemplate, error)
	ListTemplates(ctx context.Context, actor *model.User) ([]model.FormTemplate, error)
	GetTemplate(ctx context.Context, actor *model.User, id uuid.UUID) (*model.FormTemplate, error)
	ListSubmissions(ctx context.Context, actor *model.User, formID uuid.UUID) ([]model.FormSubmission, error)
	Public(ctx context.Context, id uuid.UUID) (*model.FormTemplate, error)
	Submit(ctx context.Context, id uuid.UUID, answers map[string]string, submittedBy string) (*model.FormSubmission, error)
}

type FormHandler struct {
	forms Forms
	log   *logger.Logger
}

func NewFormHandler(forms Forms, log *logger.Logger) *FormHandler {
	return &FormHandler{forms: forms, log: log.Named("forms")}
}

type TemplateRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Fields      []model.FormField `json:"fields"`
	IsActive    *bool             `json:"isActive"`
}

func (r TemplateRequest) input() service.TemplateInput {
	return service.TemplateInput{
		Title:       r.Title,
		Description: r.Description,
		Fields:      r.Fields,
		IsActive:    r.IsActive,
	}
}

// PublicForm is what an unauthenticated responder sees of a template.
type PublicForm struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Fields      []model.FormField `json:"fields"`
	IsActive    bool              `json:"isActive"`
}

// SubmissionRequest carries answers keyed by field label.
type SubmissionRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

func (h *FormHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	form, err := h.forms.CreateTemplate(c.Request.Context(), user, req.input())
	if err != nil {
		respondError(c, h.log, err, "Failed to create form")
		return
	}
	c.JSON(http.StatusCreated, form)
}

func (h *FormHandler) Update(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	form, err := h.forms.UpdateTemplate(c.Request.Context(), user, id, req.input())
	if err != nil {
		respondError(c, h.log, err, "Failed to update form")
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *FormHandler) List(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	forms, err := h.forms.ListTemplates(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve forms")
		return
	}
	c.JSON(http.StatusOK, forms)
}

func (h *FormHandler) GetByID(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	form, err := h.forms.GetTemplate(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve form")
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *FormHandler) Submissions(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subs, err := h.forms.ListSubmissions(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve submissions")
		return
	}
	c.JSON(http.StatusOK, subs)
}

// Public godoc
// @Summary      Public view of a form
// @Tags         Public forms
// @Produce      json
// @Param        id path string true "Form ID"
// @Success      200 {object} PublicForm
// @Failure      404 {object} ErrorResponse
// @Router       /public/forms/{id} [get]
func (h *FormHandler) Public(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	form, err := h.forms.Public(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve form")
		return
	}
	c.JSON(http.StatusOK, PublicForm{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		Fields:      form.Fields,
		IsActive:    form.IsActive,
	})
}

// Submit godoc
// @Summary      Submit answers to a form
// @Description  Answers are keyed by field label. Signed-in responders are recorded by email, everyone else as anonymous.
// @Tags         Public forms
// @Accept       json
// @Produce      json
// @Param        id path string true "Form ID"
// @Param        request body SubmissionRequest true "Answers"
// @Success      201 {object} model.FormSubmission
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /public/forms/{id}/submissions [post]
func (h *FormHandler) Submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var submittedBy string
	if user, ok := middleware.CurrentUser(c); ok {
		submittedBy = user.Email
	}

	sub, err := h.forms.Submit(c.Request.Context(), id, req.Answers, submittedBy)
	if err != nil {
		respondError(c, h.log, err, "Failed to submit form")
		return
	}
	c.JSON(http.StatusCreated, sub)
}
