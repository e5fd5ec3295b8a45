// Package errors defines the application error taxonomy and the unified
// HTTP error response.
//
// Three kinds of failure cross the API boundary: NotFound (absent id,
// reported as 404), StorageFailure (persistence I/O error, 500, logged and
// never retried by the store), and MalformedInput (unparseable payload,
// 400, request rejected whole).
package errors

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error for HTTP status mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindStorageFailure
	KindMalformedInput
)

// Sentinel errors used by the store and service layers.
var (
	ErrNotFound = &AppError{Kind: KindNotFound, Message: "Not found"}
)

// AppError is the unified application error.
type AppError struct {
	// Kind error classification
	Kind Kind `json:"-"`
	// Message error message, serialized as the response "error" field
	Message string `json:"error"`
	// Details optional extra information
	Details []string `json:"details,omitempty"`
	// Cause original error (not serialized)
	Cause error `json:"-"`
	// Timestamp error creation time
	Timestamp time.Time `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap supports errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is treats any two AppErrors of the same Kind as equivalent, so
// errors.Is(err, ErrNotFound) works for wrapped store errors.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus maps the error kind to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindMalformedInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NotFound creates a NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message, Timestamp: time.Now()}
}

// StorageFailure wraps a persistence I/O error.
func StorageFailure(message string, cause error) *AppError {
	return &AppError{Kind: KindStorageFailure, Message: message, Cause: cause, Timestamp: time.Now()}
}

// MalformedInput creates a bad-payload error.
func MalformedInput(message string, cause error) *AppError {
	return &AppError{Kind: KindMalformedInput, Message: message, Cause: cause, Timestamp: time.Now()}
}

// WithDetails sets details and returns the error for chaining.
func (e *AppError) WithDetails(details ...string) *AppError {
	e.Details = details
	return e
}

// ErrorResponse writes the unified error body.
// Unknown errors are reported as StorageFailure without leaking the cause.
func ErrorResponse(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, &AppError{
		Kind:      KindStorageFailure,
		Message:   "Internal Server Error",
		Timestamp: time.Now(),
	})
}

// IsNotFound reports whether err is a NotFound application error.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == KindNotFound
}
