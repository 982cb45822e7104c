package study

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/domain/srs"
)

// Common error types for the study service
var (
	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrSetNotFound indicates that the card set does not exist.
	ErrSetNotFound = errors.New("card set not found")

	// ErrInvalidGrade indicates a grade other than again, good or easy.
	ErrInvalidGrade = domain.ErrInvalidGrade

	// ErrInvalidDays indicates a postponement of less than one day.
	ErrInvalidDays = srs.ErrInvalidDays
)

// ServiceError wraps errors from the study service with the operation that
// failed, so that callers can use errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_grade", "complete_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Operation names used in ServiceError.
const (
	OpCreateSet       = "create_set"
	OpListSets        = "list_sets"
	OpAddCard         = "add_card"
	OpImportDeck      = "import_deck"
	OpSubmitGrade     = "submit_grade"
	OpPostpone        = "postpone"
	OpPreview         = "preview"
	OpStartSession    = "start_session"
	OpCompleteSession = "complete_session"
	OpStreak          = "streak"
)

// NewServiceError returns a ServiceError for operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewSubmitGradeError returns a new ServiceError for the submit_grade operation.
func NewSubmitGradeError(message string, err error) *ServiceError {
	return NewServiceError(OpSubmitGrade, message, err)
}

// NewStartSessionError returns a new ServiceError for the start_session operation.
func NewStartSessionError(message string, err error) *ServiceError {
	return NewServiceError(OpStartSession, message, err)
}

// NewCompleteSessionError returns a new ServiceError for the complete_session operation.
func NewCompleteSessionError(message string, err error) *ServiceError {
	return NewServiceError(OpCompleteSession, message, err)
}
