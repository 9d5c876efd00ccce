package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an error for API clients.
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeInternal        ErrorType = "INTERNAL_ERROR"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypeRateLimit       ErrorType = "RATE_LIMIT"
	ErrorTypeServiceDown     ErrorType = "SERVICE_DOWN"
	ErrorTypePayloadTooLarge ErrorType = "PAYLOAD_TOO_LARGE"
	// ErrorTypeCorruptStream marks uploads whose stream header cannot be
	// parsed. A short or truncated frame payload is not corrupt; decoding
	// simply stops at the last complete frame.
	ErrorTypeCorruptStream ErrorType = "CORRUPT_STREAM"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

func NewConflictError(message string) *AppError {
	return New(ErrorTypeConflict, message, http.StatusConflict)
}

func NewRateLimitError(message string) *AppError {
	return New(ErrorTypeRateLimit, message, http.StatusTooManyRequests)
}

func NewServiceDownError(service string) *AppError {
	return New(ErrorTypeServiceDown, fmt.Sprintf("%s service is currently unavailable", service), http.StatusServiceUnavailable)
}

// NewPayloadTooLargeError reports an upload above the configured limit.
func NewPayloadTooLargeError(limit int64) *AppError {
	return New(ErrorTypePayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge).
		WithDetails(map[string]interface{}{"limit": limit})
}

// NewFrameTooLargeError reports a frame geometry above the configured pixel
// limit.
func NewFrameTooLargeError(width, height int, limit int64) *AppError {
	return New(ErrorTypePayloadTooLarge, fmt.Sprintf("frame size %dx%d exceeds %d pixels", width, height, limit), http.StatusRequestEntityTooLarge).
		WithDetails(map[string]interface{}{"width": width, "height": height, "limit": limit})
}

// WrapCorruptStream reports a stream whose header failed to parse.
func WrapCorruptStream(err error) *AppError {
	return Wrap(err, ErrorTypeCorruptStream, "stream header is invalid", http.StatusUnprocessableEntity)
}

// IsAppError reports whether err is or wraps an AppError.
func IsAppError(err error) bool {
	_, ok := GetAppError(err)
	return ok
}

// GetAppError extracts the first AppError in err's chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
