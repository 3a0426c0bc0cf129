package cmd

import (
	"log/slog"
	"os"

	"github.com/glintlabs/glint/internal/log"
)

// Execute is the entry point called from main. It installs a
// process-wide logger before running the root command so that code
// running ahead of a subcommand's own wiring, configuration loading
// included, has somewhere to write.
func Execute() error {
	slog.SetDefault(initLogger())
	return rootCmd.Execute()
}

// initLogger builds the default stderr logger. Configuration is not
// loaded yet at this point, so the level comes from the environment:
// DEBUG set (any value) means debug level, otherwise info.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// logLevel resolves the level for a command's own logger. DEBUG in the
// environment wins over the configured value.
func logLevel(configured string) slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return log.ParseLevel(configured)
}
