package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("report"), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError},
		{"conflict", NewConflictError("exists"), ErrorTypeConflict, http.StatusConflict},
		{"rate limit", NewRateLimitError("slow down"), ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"service down", NewServiceDownError("redis"), ErrorTypeServiceDown, http.StatusServiceUnavailable},
		{"payload too large", NewPayloadTooLargeError(1024), ErrorTypePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"corrupt stream", WrapCorruptStream(assert.AnError), ErrorTypeCorruptStream, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}

	assert.Equal(t, "report not found", NewNotFoundError("report").Message)
	assert.Equal(t, int64(1024), NewPayloadTooLargeError(1024).Details["limit"])
}

func TestAppErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("parse header: %w", assert.AnError)
	appErr := WrapCorruptStream(cause)

	assert.ErrorIs(t, appErr, assert.AnError)
	assert.Contains(t, appErr.Error(), "CORRUPT_STREAM")
	assert.Contains(t, appErr.Error(), "caused by")

	wrapped := fmt.Errorf("handler: %w", appErr)
	got, ok := GetAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, appErr, got)
	assert.True(t, IsAppError(wrapped))
	assert.False(t, IsAppError(assert.AnError))

	plain := NewValidationError("bad").WithCode("E1")
	assert.Equal(t, "VALIDATION_ERROR: bad", plain.Error())
	assert.Equal(t, "E1", plain.Code)
}

func newTestHandler() (*ErrorHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	return NewErrorHandler(logger), &buf
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleError(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NewValidationError("unknown format").WithDetails(map[string]interface{}{"format": "xml"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.Equal(t, ErrorTypeValidation, resp.Error.Type)
	assert.Equal(t, "unknown format", resp.Error.Message)
	assert.Equal(t, "xml", resp.Error.Details["format"])
	assert.Equal(t, "trace-1", resp.TraceID)
}

func TestHandleErrorHidesPlainErrors(t *testing.T) {
	h, logs := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("redis: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, ErrorTypeInternal, resp.Error.Type)
	assert.NotContains(t, resp.Error.Message, "redis")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleNotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleMethodNotAllowed(rec, httptest.NewRequest(http.MethodPut, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	h, logs := newTestHandler()

	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("decoder exploded")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "Panic recovered")
}
