// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, GLINT_* prefix)
//  2. Config file (~/.glint/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Categories:
//   - Server: backend base URL, request timeout, retry budget
//   - Auth: credentials file location
//   - Chat: history page size, progress tick interval, trace visibility
//   - UI: markdown render theme
//   - Log: level and format
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultHistoryLimit is the session directory page size.
	DefaultHistoryLimit = 10

	// MaxHistoryLimit bounds the page size to keep list responses small.
	MaxHistoryLimit = 100

	// DefaultProgressInterval is the progress timer tick period.
	DefaultProgressInterval = 100 * time.Millisecond

	// DefaultTimeout is the per-request transport timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultBaseURL points at a local backend, matching the development
	// setup the service ships with.
	DefaultBaseURL = "http://localhost:8000"
)

// Config stores application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" json:"server"`
	Auth   AuthConfig   `mapstructure:"auth" json:"auth"`
	Chat   ChatConfig   `mapstructure:"chat" json:"chat"`
	UI     UIConfig     `mapstructure:"ui" json:"ui"`
	Log    LogConfig    `mapstructure:"log" json:"log"`
}

// ServerConfig describes how to reach the assistant backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. "https://assistant.example.com".
	// Route prefixes (/ai, /auth) are appended by the API client.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`

	// MaxRetries bounds transport-level retries for idempotent requests.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`
}

// AuthConfig locates the bearer credentials saved by `glint auth login`.
type AuthConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file"`
}

// ChatConfig tunes the conversation layer.
type ChatConfig struct {
	// HistoryLimit is the session directory page size.
	HistoryLimit int `mapstructure:"history_limit" json:"history_limit"`

	// ProgressInterval is the elapsed-time tick period while a query is
	// in flight.
	ProgressInterval time.Duration `mapstructure:"progress_interval" json:"progress_interval"`

	// ShowTrace renders the thinking trace of the last answer when set.
	ShowTrace bool `mapstructure:"show_trace" json:"show_trace"`
}

// UIConfig tunes terminal rendering.
type UIConfig struct {
	// Theme selects the markdown render style: auto, dark, light or notty.
	Theme string `mapstructure:"theme" json:"theme"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" json:"level"`

	// JSON switches log output to JSON format.
	JSON bool `mapstructure:"json" json:"json"`
}

// Dir returns the glint configuration directory (~/.glint), creating it
// when absent.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}

	dir := filepath.Join(home, ".glint")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(dir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{dir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(dir string) {
	viper.SetDefault("server.base_url", DefaultBaseURL)
	viper.SetDefault("server.timeout", DefaultTimeout)
	viper.SetDefault("server.max_retries", 3)

	viper.SetDefault("auth.credentials_file", filepath.Join(dir, "credentials.json"))

	viper.SetDefault("chat.history_limit", DefaultHistoryLimit)
	viper.SetDefault("chat.progress_interval", DefaultProgressInterval)
	viper.SetDefault("chat.show_trace", false)

	viper.SetDefault("ui.theme", "auto")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)
}

// bindEnvVariables binds environment overrides explicitly. Only the keys
// that make sense to flip per invocation get an environment name.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("server.base_url", "GLINT_SERVER_URL")
	mustBind("server.timeout", "GLINT_SERVER_TIMEOUT")
	mustBind("auth.credentials_file", "GLINT_CREDENTIALS_FILE")
	mustBind("chat.history_limit", "GLINT_HISTORY_LIMIT")
	mustBind("chat.show_trace", "GLINT_SHOW_TRACE")
	mustBind("ui.theme", "GLINT_THEME")
	mustBind("log.level", "GLINT_LOG_LEVEL")
	mustBind("log.json", "GLINT_LOG_JSON")
}
