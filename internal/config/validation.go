package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBaseURL indicates the server base URL is missing or unparsable.
	ErrInvalidBaseURL = errors.New("invalid server base URL")

	// ErrInvalidTimeout indicates the request timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid server timeout")

	// ErrInvalidMaxRetries indicates the retry budget is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidHistoryLimit indicates the history page size is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidProgressInterval indicates the progress tick period is out of range.
	ErrInvalidProgressInterval = errors.New("invalid progress interval")

	// ErrInvalidTheme indicates the UI theme is not a known style.
	ErrInvalidTheme = errors.New("invalid theme")
)

// Validate checks configuration ranges, fail-fast on first violation.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q (want http(s)://host[:port])", ErrInvalidBaseURL, c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not supported", ErrInvalidBaseURL, u.Scheme)
	}

	if c.Server.Timeout <= 0 || c.Server.Timeout > 10*time.Minute {
		return fmt.Errorf("%w: %v (want (0, 10m])", ErrInvalidTimeout, c.Server.Timeout)
	}

	if c.Server.MaxRetries < 0 || c.Server.MaxRetries > 10 {
		return fmt.Errorf("%w: %d (want [0, 10])", ErrInvalidMaxRetries, c.Server.MaxRetries)
	}

	if c.Chat.HistoryLimit < 1 || c.Chat.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("%w: %d (want [1, %d])", ErrInvalidHistoryLimit, c.Chat.HistoryLimit, MaxHistoryLimit)
	}

	if c.Chat.ProgressInterval < 10*time.Millisecond || c.Chat.ProgressInterval > 5*time.Second {
		return fmt.Errorf("%w: %v (want [10ms, 5s])", ErrInvalidProgressInterval, c.Chat.ProgressInterval)
	}

	switch c.UI.Theme {
	case "auto", "dark", "light", "notty":
	default:
		return fmt.Errorf("%w: %q (want auto, dark, light or notty)", ErrInvalidTheme, c.UI.Theme)
	}

	return nil
}
