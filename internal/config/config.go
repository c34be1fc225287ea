// Package config loads the command line client's settings from YAML, with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshocks/bikeshop/pkg/api"
	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/retry"
	"github.com/oshocks/bikeshop/pkg/uploads"
)

// Config holds all client settings.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Uploads UploadsConfig `yaml:"uploads"`
	Retry   RetryConfig   `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	Prefix   string `yaml:"prefix"`
	Timeout  string `yaml:"timeout"`
	StateDir string `yaml:"state_dir"`

	// Endpoints overrides individual routes. Unset routes keep the defaults.
	Endpoints api.Endpoints `yaml:"endpoints"`
}

// UploadsConfig bounds staged files. Each form keeps its own accepted types.
type UploadsConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"`
}

// RetryConfig configures retries of idempotent reads.
type RetryConfig struct {
	MaxRetries   int     `yaml:"max_retries"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level   string `yaml:"level"`   // debug, info, warn, error
	Backend string `yaml:"backend"` // slog, zap
	Format  string `yaml:"format"`  // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "https://api.oshocks.co.ke",
			Prefix:   api.DefaultAPIPrefix,
			Timeout:  "30s",
			StateDir: defaultDir(),
		},
		Uploads: UploadsConfig{
			MaxFileSize: uploads.DefaultMaxFileSize,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: "200ms",
			MaxDelay:     "5s",
			Multiplier:   2,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Backend: "slog",
			Format:  "text",
		},
	}
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".oshocks"
	}
	return filepath.Join(dir, "oshocks")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OSHOCKS_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("OSHOCKS_STATE_DIR"); v != "" {
		c.API.StateDir = v
	}
	if v := os.Getenv("OSHOCKS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OSHOCKS_LOG_BACKEND"); v != "" {
		c.Logging.Backend = v
	}
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("config: uploads.max_file_size must be positive, got %d", c.Uploads.MaxFileSize)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	switch c.Logging.Backend {
	case "", "slog", "zap":
	default:
		return fmt.Errorf("config: logging.backend must be slog or zap, got %q", c.Logging.Backend)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("config: retry.max_retries cannot be negative")
	}
	return nil
}

// GetTimeout returns the API timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = c.Retry.MaxRetries
	if d, err := time.ParseDuration(c.Retry.InitialDelay); err == nil {
		rc.InitialDelay = d
	}
	if d, err := time.ParseDuration(c.Retry.MaxDelay); err == nil {
		rc.MaxDelay = d
	}
	if c.Retry.Multiplier >= 1 {
		rc.Multiplier = c.Retry.Multiplier
	}
	return rc
}

// APIClientConfig converts the API settings.
func (c *Config) APIClientConfig() api.Config {
	return api.Config{
		BaseURL:   c.API.BaseURL,
		APIPrefix: c.API.Prefix,
		Timeout:   c.GetTimeout(),
		Endpoints: c.API.Endpoints,
	}
}

// LoggingOptions converts the logging settings. Output is left for the caller.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Backend: c.Logging.Backend,
		Level:   c.Logging.Level,
		JSON:    c.Logging.Format == "json",
	}
}
