package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend connectivity",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	status, err := rt.client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", rt.cfg.Server.BaseURL, err)
	}

	fmt.Printf("Backend %s: %s\n", rt.cfg.Server.BaseURL, status)
	return nil
}
