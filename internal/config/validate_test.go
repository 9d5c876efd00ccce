package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  CodecConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			config: CodecConfig{Width: 320, Height: 240, FrameRate: 24, Threshold: 127},
		},
		{
			name:   "zero size keeps source geometry",
			config: CodecConfig{FrameRate: 24, Threshold: 127},
		},
		{
			name:    "width too large",
			config:  CodecConfig{Width: 70000, Height: 240, FrameRate: 24},
			wantErr: true,
			errMsg:  "invalid width",
		},
		{
			name:    "negative height",
			config:  CodecConfig{Width: 320, Height: -1, FrameRate: 24},
			wantErr: true,
			errMsg:  "invalid height",
		},
		{
			name:    "frame rate does not fit header",
			config:  CodecConfig{Width: 320, Height: 240, FrameRate: 300},
			wantErr: true,
			errMsg:  "frame_rate must be between 1 and 255",
		},
		{
			name:    "threshold out of range",
			config:  CodecConfig{Width: 320, Height: 240, FrameRate: 24, Threshold: 256},
			wantErr: true,
			errMsg:  "threshold must be between 0 and 255",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerConfigValidate(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	base := func() ServerConfig {
		return ServerConfig{HTTPPort: 8080, MaxUploadSize: 1 << 20, RateLimit: 10, RateBurst: 20}
	}

	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{name: "valid plain HTTP", mutate: func(*ServerConfig) {}},
		{name: "invalid HTTP port", mutate: func(s *ServerConfig) { s.HTTPPort = 0 }, wantErr: true},
		{name: "HTTP3 with certificates", mutate: func(s *ServerConfig) {
			s.HTTP3Port = 8443
			s.TLSCertFile = cert
			s.TLSKeyFile = key
		}},
		{name: "HTTP3 without cert", mutate: func(s *ServerConfig) {
			s.HTTP3Port = 8443
			s.TLSKeyFile = key
		}, wantErr: true},
		{name: "HTTP3 without key", mutate: func(s *ServerConfig) {
			s.HTTP3Port = 8443
			s.TLSCertFile = cert
		}, wantErr: true},
		{name: "HTTP3 missing cert file", mutate: func(s *ServerConfig) {
			s.HTTP3Port = 8443
			s.TLSCertFile = filepath.Join(dir, "nope.pem")
			s.TLSKeyFile = key
		}, wantErr: true},
		{name: "invalid HTTP3 port", mutate: func(s *ServerConfig) {
			s.HTTP3Port = 70000
			s.TLSCertFile = cert
			s.TLSKeyFile = key
		}, wantErr: true},
		{name: "zero upload size", mutate: func(s *ServerConfig) { s.MaxUploadSize = 0 }, wantErr: true},
		{name: "negative frame pixel limit", mutate: func(s *ServerConfig) { s.MaxFramePixels = -1 }, wantErr: true},
		{name: "negative rate limit", mutate: func(s *ServerConfig) { s.RateLimit = -1 }, wantErr: true},
		{name: "rate limit without burst", mutate: func(s *ServerConfig) { s.RateBurst = 0 }, wantErr: true},
		{name: "rate limit disabled", mutate: func(s *ServerConfig) {
			s.RateLimit = 0
			s.RateBurst = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedisConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  RedisConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:   "disabled skips checks",
			config: RedisConfig{Enabled: false},
		},
		{
			name: "valid config",
			config: RedisConfig{
				Enabled:      true,
				Addresses:    []string{"localhost:6379"},
				MaxRetries:   3,
				PoolSize:     100,
				MinIdleConns: 10,
			},
		},
		{
			name:    "missing addresses",
			config:  RedisConfig{Enabled: true, PoolSize: 100},
			wantErr: true,
			errMsg:  "at least one Redis address is required",
		},
		{
			name:    "negative DB",
			config:  RedisConfig{Enabled: true, Addresses: []string{"localhost:6379"}, DB: -1, PoolSize: 100},
			wantErr: true,
			errMsg:  "invalid Redis database number",
		},
		{
			name:    "zero pool size",
			config:  RedisConfig{Enabled: true, Addresses: []string{"localhost:6379"}},
			wantErr: true,
			errMsg:  "pool_size must be positive",
		},
		{
			name: "min idle conns greater than pool size",
			config: RedisConfig{
				Enabled:      true,
				Addresses:    []string{"localhost:6379"},
				PoolSize:     5,
				MinIdleConns: 10,
			},
			wantErr: true,
			errMsg:  "min_idle_conns cannot be greater than pool_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCatalogConfigValidate(t *testing.T) {
	assert.NoError(t, (&CatalogConfig{Prefix: "bwrle:"}).Validate())
	assert.Error(t, (&CatalogConfig{}).Validate())
	assert.Error(t, (&CatalogConfig{Prefix: "bwrle:", TTL: -1}).Validate())
}

func TestLoggingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{name: "stderr text", config: LoggingConfig{Level: "info", Format: "text", Output: "stderr"}},
		{name: "stdout json", config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"}},
		{name: "file output", config: LoggingConfig{Level: "debug", Format: "json", Output: "/tmp/bwrle.log", MaxSize: 10}},
		{name: "bad level", config: LoggingConfig{Level: "verbose", Format: "text", Output: "stderr"}, wantErr: true},
		{name: "bad format", config: LoggingConfig{Level: "info", Format: "xml", Output: "stderr"}, wantErr: true},
		{name: "file without size", config: LoggingConfig{Level: "info", Format: "text", Output: "/tmp/bwrle.log"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMetricsConfigValidate(t *testing.T) {
	assert.NoError(t, (&MetricsConfig{Enabled: false}).Validate())
	assert.NoError(t, (&MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"}).Validate())
	assert.Error(t, (&MetricsConfig{Enabled: true, Port: 0, Path: "/metrics"}).Validate())
	assert.Error(t, (&MetricsConfig{Enabled: true, Port: 9090}).Validate())
}
