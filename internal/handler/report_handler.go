package handler

import (
	"net/http"

	"solis/internal/logger"
	"solis/internal/model"
	"solis/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *service.ReportService
	log     *logger.Logger
}

func NewReportHandler(reports *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log.Named("reports")}
}

type ReportRequest struct {
	Title      string         `json:"title"`
	Type       string         `json:"type"`
	Department string         `json:"department" binding:"omitempty,department"`
	DateRange  string         `json:"dateRange"`
	Metrics    []model.Metric `json:"metrics"`
	Analyze    bool           `json:"analyze"`
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// Create godoc
// @Summary      Create a report
// @Description  With analyze set, AI commentary is requested in the background.
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ReportRequest true "Report"
// @Success      201 {object} model.Report
// @Failure      400 {object} ErrorResponse
// @Router       /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.reports.Create(c.Request.Context(), user, service.CreateReportInput{
		Title:      req.Title,
		Type:       req.Type,
		Department: req.Department,
		DateRange:  req.DateRange,
		Metrics:    req.Metrics,
		Analyze:    req.Analyze,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to create report")
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.reports.List(c.Request.Context(), c.Query("department"), c.Query("type"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *ReportHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// Analyze godoc
// @Summary      Request AI commentary for a report
// @Tags         Reports
// @Security     BearerAuth
// @Param        id path string true "Report ID"
// @Success      202
// @Failure      404 {object} ErrorResponse
// @Router       /reports/{id}/analyze [post]
func (h *ReportHandler) Analyze(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reports.Analyze(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "Failed to schedule analysis")
		return
	}
	c.Status(http.StatusAccepted)
}

// Chat godoc
// @Summary      Ask the assistant about a report
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Report ID"
// @Param        request body ChatRequest true "Message"
// @Success      200 {object} ChatResponse
// @Failure      503 {object} ErrorResponse
// @Router       /reports/{id}/chat [post]
func (h *ReportHandler) Chat(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	reply, err := h.reports.Chat(c.Request.Context(), user, id, req.Message)
	if err != nil {
		respondError(c, h.log, err, "The assistant is unavailable")
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

func (h *ReportHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reports.Delete(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err, "Failed to delete report")
		return
	}
	c.Status(http.StatusNoContent)
}
