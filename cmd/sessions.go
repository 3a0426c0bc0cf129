package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glintlabs/glint/internal/config"
	"github.com/glintlabs/glint/internal/conversation"
	"github.com/glintlabs/glint/internal/export"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage stored conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsExport,
}

func init() {
	sessionsListCmd.Flags().Int("limit", 50, "maximum sessions to list")
	sessionsExportCmd.Flags().String("format", "json", "output format: json, yaml or markdown")
	sessionsExportCmd.Flags().StringP("output", "o", "", "output path, - for stdout (default: derived from the session id)")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	raw, err := rt.client.Sessions(cmd.Context(), limit, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(raw) == 0 {
		fmt.Println("No sessions stored.")
		return nil
	}

	skipped := 0
	fmt.Printf("%-40s  %-44s  %5s  %s\n", "ID", "TITLE", "MSGS", "LAST")
	for _, entry := range raw {
		s, reason := conversation.ParseSummary(entry)
		if reason != "" {
			skipped++
			continue
		}
		stamp := s.LastAt
		if stamp == "" {
			stamp = s.FirstAt
		}
		fmt.Printf("%-40s  %-44.44s  %5d  %s\n", s.ID, s.DisplayTitle(), s.MessageCount, formatTime(stamp))
	}
	if skipped > 0 {
		fmt.Printf("(%d entries could not be read)\n", skipped)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	if err := rt.client.DeleteSession(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	id := args[0]
	ctx := cmd.Context()

	raw, err := rt.client.SessionMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching transcript: %w", err)
	}
	msgs, dropped := conversation.ParseTranscript(raw)
	if len(msgs) == 0 {
		return fmt.Errorf("session %s has no readable messages", id)
	}
	for reason, n := range dropped {
		rt.logger.Warn("transcript entries skipped", "reason", reason, "count", n)
	}

	doc := export.Build(findSummary(ctx, rt, id), msgs)

	if outPath == "-" {
		return export.Write(os.Stdout, f, doc)
	}
	if outPath == "" {
		outPath = export.Filename(id, f)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := export.Write(file, f, doc); err != nil {
		file.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	fmt.Printf("Exported session %s to %s\n", id, outPath)
	return nil
}

// findSummary looks the session up in the first directory page so the
// export carries its title. A miss produces a bare summary.
func findSummary(ctx context.Context, rt *runtime, id string) conversation.SessionSummary {
	raw, err := rt.client.Sessions(ctx, config.MaxHistoryLimit, 0)
	if err != nil {
		return conversation.SessionSummary{ID: id}
	}
	for _, entry := range raw {
		if s, reason := conversation.ParseSummary(entry); reason == "" && s.ID == id {
			return s
		}
	}
	return conversation.SessionSummary{ID: id}
}
