package cmd

import (
	"fmt"
	"time"

	"github.com/glintlabs/glint/internal/api"
	"github.com/glintlabs/glint/internal/auth"
	"github.com/glintlabs/glint/internal/config"
	"github.com/glintlabs/glint/internal/log"
)

// runtime bundles what a subcommand needs to reach the backend.
type runtime struct {
	cfg    *config.Config
	logger log.Logger
	client *api.Client
	store  *auth.Store
}

// newRuntime loads configuration and builds an API client logging to
// stderr. The chat command assembles its own runtime because its logs
// go to a file instead.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := log.New(log.Config{
		Level: logLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
	return buildRuntime(cfg, logger)
}

func buildRuntime(cfg *config.Config, logger log.Logger) (*runtime, error) {
	store, err := auth.NewStore(cfg.Auth.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	retry := api.DefaultRetryConfig()
	retry.MaxRetries = cfg.Server.MaxRetries

	client, err := api.New(api.Config{
		BaseURL: cfg.Server.BaseURL,
		Token:   store,
		Logger:  logger,
		Timeout: cfg.Server.Timeout,
		Retry:   retry,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, client: client, store: store}, nil
}

// formatTime renders a directory timestamp as a short age label.
// Unparseable stamps come back unchanged.
func formatTime(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
