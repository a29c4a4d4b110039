package service

import (
	"errors"
	"fmt"

	"solis/internal/repository"
)

var (
	// ErrForbidden means the actor's stored permissions do not allow the operation.
	ErrForbidden       = errors.New("forbidden")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrAccountDisabled = errors.New("account disabled")
	ErrFormClosed      = errors.New("form is not accepting submissions")
)

// ValidationError is returned before any I/O when input is malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is one of the repository not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrTaskNotFound) ||
		errors.Is(err, repository.ErrUserNotFound) ||
		errors.Is(err, repository.ErrListNotFound) ||
		errors.Is(err, repository.ErrDocumentNotFound) ||
		errors.Is(err, repository.ErrReportNotFound) ||
		errors.Is(err, repository.ErrFormNotFound)
}
