package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Scripts   ScriptsConfig
	Crypto    CryptoConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"ANDJS_PORT" default:"8000"`
	Host        string   `envconfig:"ANDJS_HOST" default:"0.0.0.0"`
	LogHistory  int      `envconfig:"ANDJS_LOG_HISTORY" default:"256"`
	CORSOrigins []string `envconfig:"ANDJS_CORS_ORIGINS" default:"*"` // "*" allows any origin
}

// EngineConfig holds script host configuration.
type EngineConfig struct {
	Timeout        time.Duration `envconfig:"ANDJS_SCRIPT_TIMEOUT" default:"5s"`
	MaxCallStack   int           `envconfig:"ANDJS_MAX_CALL_STACK" default:"1024"`
	QueueSize      int           `envconfig:"ANDJS_QUEUE_SIZE" default:"64"`
	PoolSize       int           `envconfig:"ANDJS_POOL_SIZE" default:"4"`
	AcquireTimeout time.Duration `envconfig:"ANDJS_ACQUIRE_TIMEOUT" default:"5s"`
}

// ScriptsConfig holds script loading configuration.
type ScriptsConfig struct {
	Root     string `envconfig:"ANDJS_SCRIPT_ROOT" default:"."`
	MaxBytes int64  `envconfig:"ANDJS_SCRIPT_MAX_BYTES" default:"1048576"`
	Manifest string `envconfig:"ANDJS_MANIFEST" default:""`
}

// CryptoConfig holds the default sealing scheme.
type CryptoConfig struct {
	Scheme string `envconfig:"ANDJS_CRYPTO_SCHEME" default:"aes-128-ctr-hmac-sha256"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values envconfig cannot express as types.
func (c *Config) Validate() error {
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("invalid config: script timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Engine.PoolSize <= 0 {
		return fmt.Errorf("invalid config: pool size must be positive, got %d", c.Engine.PoolSize)
	}
	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("invalid config: queue size must be positive, got %d", c.Engine.QueueSize)
	}
	if c.Scripts.MaxBytes <= 0 {
		return fmt.Errorf("invalid config: script max bytes must be positive, got %d", c.Scripts.MaxBytes)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			LogHistory:  256,
			CORSOrigins: []string{"*"},
		},
		Engine: EngineConfig{
			Timeout:        5 * time.Second,
			MaxCallStack:   1024,
			QueueSize:      64,
			PoolSize:       4,
			AcquireTimeout: 5 * time.Second,
		},
		Scripts: ScriptsConfig{
			Root:     ".",
			MaxBytes: 1 << 20,
		},
		Crypto: CryptoConfig{
			Scheme: "aes-128-ctr-hmac-sha256",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
