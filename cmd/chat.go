package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/glintlabs/glint/internal/api"
	"github.com/glintlabs/glint/internal/config"
	"github.com/glintlabs/glint/internal/conversation"
	"github.com/glintlabs/glint/internal/log"
	"github.com/glintlabs/glint/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringP("query", "q", "", "ask a single question and exit")
	chatCmd.Flags().String("session", "", "conversation to continue (only with --query)")
	rootCmd.AddCommand(chatCmd)
}

// runChat opens the interactive interface, or answers one query and
// exits when --query is set.
func runChat(cmd *cobra.Command, args []string) error {
	query, err := cmd.Flags().GetString("query")
	if err != nil {
		return err
	}
	if query != "" {
		session, err := cmd.Flags().GetString("session")
		if err != nil {
			return err
		}
		return runOneShot(query, session)
	}
	return runInteractive()
}

// runInteractive starts the Bubble Tea interface over a conversation
// controller.
func runInteractive() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Logs go to a file here; stderr writes would tear the alt screen.
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(dir, "glint.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	logger := log.NewWithWriter(logFile, log.Config{
		Level: logLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})

	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl, err := conversation.New(conversation.Config{
		Backend:          rt.client,
		Logger:           rt.logger,
		HistoryLimit:     cfg.Chat.HistoryLimit,
		ProgressInterval: cfg.Chat.ProgressInterval,
		ShowTrace:        cfg.Chat.ShowTrace,
	})
	if err != nil {
		return fmt.Errorf("creating conversation controller: %w", err)
	}
	defer ctrl.Close()

	model, err := tui.New(ctx, ctrl)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}

// runOneShot sends a single query and prints the answer. Scripts use
// this where the full interface is unwanted.
func runOneShot(query, session string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := rt.client.Chat(ctx, api.ChatRequest{Query: query, ConversationID: session})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if resp.Failed {
		return fmt.Errorf("assistant error: %s", string(resp.Answer))
	}

	fmt.Println(string(resp.Answer))
	for _, in := range resp.Insights {
		line := "  • " + in.Title
		if in.Value != "" {
			line += ": " + in.Value
		}
		fmt.Println(line)
	}
	if len(resp.AgentsUsed) > 0 {
		fmt.Println("agents: " + strings.Join(resp.AgentsUsed, ", "))
	}
	// The ids let follow-up commands continue the conversation or rate
	// this answer.
	if id := resp.Session(); id != "" {
		fmt.Println("session: " + id)
	}
	if id := resp.MessageID(); id != "" {
		fmt.Println("message: " + id)
	}
	return nil
}
