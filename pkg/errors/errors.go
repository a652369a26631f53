package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("resource conflict")
	ErrStoreUnavailable = errors.New("document store unavailable")
	ErrUnsupported      = errors.New("operation not supported by store backend")
	ErrExtraction       = errors.New("content extraction failed")
	ErrParsing          = errors.New("content parsing failed")
	ErrPersist          = errors.New("persisting document failed")
	ErrValidation       = errors.New("validation error")
	ErrInternal         = errors.New("internal server error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common error constructors

// InvalidArgument signals a bad input detected before any I/O was attempted.
func InvalidArgument(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidArgument,
		Code:       "INVALID_ARGUMENT",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// StoreUnavailable signals that every retrieval strategy against the
// document store failed with a genuine fault.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrStoreUnavailable, err),
		Code:       "STORE_UNAVAILABLE",
		Message:    "document store unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
}

func Extraction(err error, message string) *AppError {
	return &AppError{
		Err:        errors.Join(ErrExtraction, err),
		Code:       "EXTRACTION_FAILED",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func Parsing(err error, message string) *AppError {
	return &AppError{
		Err:        errors.Join(ErrParsing, err),
		Code:       "PARSING_FAILED",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func Persist(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrPersist, err),
		Code:       "PERSIST_FAILED",
		Message:    "failed to persist document",
		StatusCode: http.StatusBadGateway,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
