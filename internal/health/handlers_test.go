package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(checkers ...Checker) (*Handler, *Manager) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	manager := NewManager(logger)
	for _, c := range checkers {
		manager.Register(c)
	}
	return NewHandler(manager), manager
}

func TestHandleHealth(t *testing.T) {
	handler, _ := newTestHandler(&mockChecker{name: "test"})

	rr := httptest.NewRecorder()
	handler.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))

	var response Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, StatusOK, response.Status)
	assert.NotEmpty(t, response.Version)
	assert.NotEmpty(t, response.Uptime)
	assert.Contains(t, response.Checks, "test")
}

func TestHandleHealthDown(t *testing.T) {
	handler, _ := newTestHandler(&mockChecker{name: "failing", err: errors.New("boom")})

	rr := httptest.NewRecorder()
	handler.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var response Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, StatusDown, response.Status)
	assert.Equal(t, "boom", response.Checks["failing"].Message)
}

func TestHandleHealthDegraded(t *testing.T) {
	handler, manager := newTestHandler()
	manager.RegisterOptional(&mockChecker{name: "ffmpeg", err: errors.New("missing")})

	rr := httptest.NewRecorder()
	handler.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
}

func TestHandleReady(t *testing.T) {
	handler, manager := newTestHandler(&mockChecker{name: "test"})

	rr := httptest.NewRecorder()
	handler.HandleReady(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "no results yet")

	manager.RunChecks(context.Background())

	rr = httptest.NewRecorder()
	handler.HandleReady(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleLive(t *testing.T) {
	handler, _ := newTestHandler(&mockChecker{name: "failing", err: errors.New("boom")})

	rr := httptest.NewRecorder()
	handler.HandleLive(rr, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"alive"`)
}
