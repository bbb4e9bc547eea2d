package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the request lacks valid authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates that the request is not allowed for the authenticated actor.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition indicates that a manuscript status change is not
	// permitted by the lifecycle table.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrAlreadyFinalized indicates an attempt to mutate a review that has
	// already been submitted or declined.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrConflict indicates that a concurrent update won; the caller should
	// re-read and retry.
	ErrConflict = errors.New("conflict")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")

	// ErrWorkflowFailed indicates that a Temporal workflow failed.
	ErrWorkflowFailed = errors.New("workflow failed")

	// ErrCancelled indicates that an operation was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// InvalidTransitionError carries the rejected status pair.
type InvalidTransitionError struct {
	ManuscriptID string
	From         ManuscriptStatus
	To           ManuscriptStatus
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for manuscript %s: %s -> %s", e.ManuscriptID, e.From, e.To)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// AlreadyFinalizedError identifies the review whose one-way gate rejected a write.
type AlreadyFinalizedError struct {
	ReviewID string
}

// Error implements the error interface.
func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("review already finalized: %s", e.ReviewID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyFinalizedError) Unwrap() error {
	return ErrAlreadyFinalized
}

// ConflictError reports a lost compare-and-swap on an entity.
type ConflictError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s was modified concurrently: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ForbiddenError explains why an actor was denied an operation.
type ForbiddenError struct {
	Role      Role
	Operation string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Operation)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewInvalidTransitionError creates a new InvalidTransitionError.
func NewInvalidTransitionError(manuscriptID string, from, to ManuscriptStatus) *InvalidTransitionError {
	return &InvalidTransitionError{
		ManuscriptID: manuscriptID,
		From:         from,
		To:           to,
	}
}

// NewAlreadyFinalizedError creates a new AlreadyFinalizedError.
func NewAlreadyFinalizedError(reviewID string) *AlreadyFinalizedError {
	return &AlreadyFinalizedError{ReviewID: reviewID}
}

// NewConflictError creates a new ConflictError.
func NewConflictError(entity, id string) *ConflictError {
	return &ConflictError{
		Entity: entity,
		ID:     id,
	}
}

// NewForbiddenError creates a new ForbiddenError.
func NewForbiddenError(role Role, operation string) *ForbiddenError {
	return &ForbiddenError{
		Role:      role,
		Operation: operation,
	}
}

// ErrorKind returns the machine-checkable kind string for an error, used in
// editor-facing responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyFinalized):
		return "ALREADY_FINALIZED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrInvalidInput):
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL"
	}
}
