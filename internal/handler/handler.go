package handler

import (
	"errors"
	"net/http"

	"solis/internal/ai"
	"solis/internal/auth"
	"solis/internal/logger"
	"solis/internal/middleware"
	"solis/internal/model"
	"solis/internal/service"
	"solis/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError maps service and repository errors to status codes. Anything
// unrecognised is logged and answered with 500 and the fallback message.
func respondError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You don't have permission to perform this action"})
	case errors.Is(err, service.ErrFormClosed):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Form is not accepting submissions"})
	case errors.Is(err, service.ErrSubtaskNotFound), service.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "User already exists"})
	case errors.Is(err, service.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Account is disabled"})
	case errors.Is(err, ai.ErrNotConfigured), errors.Is(err, storage.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "This feature is not configured on the server"})
	case errors.Is(err, auth.ErrUnsupported):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Sign in through the identity provider"})
	default:
		_ = c.Error(err)
		log.Error().Err(err).Str("route", c.FullPath()).Msg(fallback)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}

// pathID parses the named uuid path parameter, answering 400 when malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name + " format"})
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated profile, answering 401 when there is none.
func actor(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not authenticated"})
		return nil, false
	}
	return user, true
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
}
