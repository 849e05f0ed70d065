package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrSetup        ErrorType = "SETUP"
	ErrRemoteWrite  ErrorType = "REMOTE_WRITE"
	ErrConflict     ErrorType = "CONFLICT"
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrRateLimit    ErrorType = "RATE_LIMIT"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
	ErrUnauthorized ErrorType = "UNAUTHORIZED"
	ErrCancelled    ErrorType = "CANCELLED"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf returns the type of the outermost AppError in err's chain, or ErrInternal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrInternal
}

func isType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsSetup checks if the error is a setup error
func IsSetup(err error) bool {
	return isType(err, ErrSetup)
}

// IsRemoteWrite checks if the error is a remote write error
func IsRemoteWrite(err error) bool {
	return isType(err, ErrRemoteWrite)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return isType(err, ErrConflict)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsRateLimit checks if the error is a rate limit error
func IsRateLimit(err error) bool {
	return isType(err, ErrRateLimit)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrInvalidInput)
}

// IsValidationError checks if the error is a validation error
// This is an alias for IsInvalidInput since validation errors are a type of invalid input error
func IsValidationError(err error) bool {
	return IsInvalidInput(err)
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return isType(err, ErrUnauthorized)
}

// IsCancelled checks if the error reports a run stopped by its caller
func IsCancelled(err error) bool {
	return isType(err, ErrCancelled)
}

// NewSetupError creates a new setup error
func NewSetupError(message string, err error) *AppError {
	return New(ErrSetup, message, err)
}

// NewRemoteWriteError creates a new remote write error
func NewRemoteWriteError(message string, err error) *AppError {
	return New(ErrRemoteWrite, message, err)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, err error) *AppError {
	return New(ErrConflict, message, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewCancelledError creates a new cancelled error
func NewCancelledError(message string, err error) *AppError {
	return New(ErrCancelled, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// JobInProgressError is returned when a job key already has a running job
type JobInProgressError struct {
	JobKey string
}

func (e *JobInProgressError) Error() string {
	return fmt.Sprintf("job already in progress: %s", e.JobKey)
}

// NewJobInProgressError creates a new JobInProgressError
func NewJobInProgressError(jobKey string) error {
	return &JobInProgressError{
		JobKey: jobKey,
	}
}

// IsJobInProgress checks if the error is a JobInProgressError
func IsJobInProgress(err error) bool {
	var target *JobInProgressError
	return stderrors.As(err, &target)
}
