// Package config loads framebridge settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Hub       HubConfig
	Child     ChildConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// HubConfig configures the window hub server
type HubConfig struct {
	Addr             string        `envconfig:"HUB_ADDR" default:":8080"`
	MaxWindowsPerTop int64         `envconfig:"HUB_MAX_WINDOWS_PER_TOP" default:"10"`
	ClosedRetention  time.Duration `envconfig:"HUB_CLOSED_RETENTION" default:"5m"`
	ReapInterval     time.Duration `envconfig:"HUB_REAP_INTERVAL" default:"30s"`
	ShutdownTimeout  time.Duration `envconfig:"HUB_SHUTDOWN_TIMEOUT" default:"10s"`
}

// ChildConfig configures a child attaching through a hub
type ChildConfig struct {
	HubURL           string        `envconfig:"HUB_URL" default:"http://localhost:8080"`
	PollInterval     time.Duration `envconfig:"CLOSE_POLL_INTERVAL" default:"500ms"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`
	RetryMax         int           `envconfig:"HUB_RETRY_MAX" default:"3"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds the per-window limits of the hub
type RateLimitConfig struct {
	Enabled         bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerHour int     `envconfig:"RATE_LIMIT_PER_HOUR" default:"3600"`
	Burst           int     `envconfig:"RATE_LIMIT_BURST" default:"60"`
	RelayPerSecond  float64 `envconfig:"RELAY_RATE_LIMIT_RPS" default:"50"`
	RelayBurst      int     `envconfig:"RELAY_RATE_LIMIT_BURST" default:"100"`
}

// Load reads the optional env files, then the environment. Missing env files
// are not an error; variables already set win over file contents.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
