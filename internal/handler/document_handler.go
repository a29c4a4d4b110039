package handler

import (
	"net/http"

	"solis/internal/logger"
	"solis/internal/service"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	docs *service.DocumentService
	log  *logger.Logger
}

func NewDocumentHandler(docs *service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, log: log.Named("documents")}
}

// Upload godoc
// @Summary      Upload a document
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "File"
// @Param        title formData string false "Title, defaults to the file name"
// @Param        department formData string false "Department, defaults to the uploader's"
// @Success      201 {object} model.Document
// @Failure      400 {object} ErrorResponse
// @Router       /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	user, ok := actor(c)
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

	doc, err := h.docs.Upload(c.Request.Context(), user, service.UploadInput{
		Title:       c.PostForm("title"),
		Department:  c.PostForm("department"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to upload document")
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), c.Query("department"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve documents")
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Delete godoc
// @Summary      Delete a document
// @Description  The stored object is removed first; a missing object does not block removing the record.
// @Tags         Documents
// @Security     BearerAuth
// @Param        id path string true "Document ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err, "Failed to delete document")
		return
	}
	c.Status(http.StatusNoContent)
}
