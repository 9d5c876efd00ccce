package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Codec   CodecConfig   `mapstructure:"codec"`
	FFmpeg  FFmpegConfig  `mapstructure:"ffmpeg"`
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type CodecConfig struct {
	// Width and Height are the frame geometry of header-less streams. On
	// encode, non-zero values rescale the source; zero keeps its size.
	Width     int  `mapstructure:"width"`
	Height    int  `mapstructure:"height"`
	FrameRate int  `mapstructure:"frame_rate"`
	Threshold int  `mapstructure:"threshold"`
	Header    bool `mapstructure:"header"`   // write/expect the 8-byte stream header
	Compress  bool `mapstructure:"compress"` // zstd container around the stream file
}

type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"`
	ProbePath  string `mapstructure:"probe_path"`
	VideoCodec string `mapstructure:"video_codec"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	HTTP3Port       int           `mapstructure:"http3_port"` // 0 disables HTTP/3
	TLSCertFile     string        `mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `mapstructure:"tls_key_file"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"`  // bytes
	MaxFramePixels  int64         `mapstructure:"max_frame_pixels"` // width*height per frame, 0 disables
	RateLimit       float64       `mapstructure:"rate_limit"`       // requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
	DebugEndpoints  bool          `mapstructure:"debug_endpoints"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type CatalogConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`     // json or text
	Output     string `mapstructure:"output"`     // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"`   // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// Option customizes Load.
type Option func(*viper.Viper) error

// WithFlags binds command line flags to configuration keys. bindings maps a
// configuration key such as "codec.width" to a flag name; only flags present
// in fs are bound.
func WithFlags(fs *pflag.FlagSet, bindings map[string]string) Option {
	return func(v *viper.Viper) error {
		for key, name := range bindings {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
		return nil
	}
}

// Load reads configuration from defaults, the optional YAML file at
// configPath, BWRLE_* environment variables and bound flags, in increasing
// order of precedence.
func Load(configPath string, opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable override
	v.SetEnvPrefix("BWRLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Codec defaults
	v.SetDefault("codec.width", 320)
	v.SetDefault("codec.height", 240)
	v.SetDefault("codec.frame_rate", 24)
	v.SetDefault("codec.threshold", 127)
	v.SetDefault("codec.header", false)
	v.SetDefault("codec.compress", false)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
	v.SetDefault("ffmpeg.video_codec", "mpeg4")

	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.http3_port", 0)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_size", 256<<20) // 256MB
	v.SetDefault("server.max_frame_pixels", 7680*4320)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.debug_endpoints", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)

	// Catalog defaults
	v.SetDefault("catalog.prefix", "bwrle:reports:")
	v.SetDefault("catalog.ttl", "24h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)
}
