package main

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestHealth(t *testing.T) {
	req, err := buildRequest("https://localhost:8443/", "", false, false)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://localhost:8443/health", req.URL.String())
}

func TestBuildRequestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.bw")
	require.NoError(t, os.WriteFile(path, []byte{16, 16}, 0o644))

	req, err := buildRequest("https://localhost:8443", path, true, true)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/analyze", req.URL.Path)
	assert.Equal(t, "true", req.URL.Query().Get("header"))
	assert.Equal(t, "csv", req.URL.Query().Get("format"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{16, 16}, body)

	_, err = buildRequest("https://localhost:8443", filepath.Join(t.TempDir(), "missing"), false, false)
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	c := newClient(true, true, time.Second)
	assert.IsType(t, &http3.RoundTripper{}, c.Transport)
	assert.Equal(t, time.Second, c.Timeout)

	c = newClient(false, false, time.Second)
	assert.IsType(t, &http.Transport{}, c.Transport)
}
