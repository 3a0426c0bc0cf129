package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "glint",
	Short: "Terminal client for the Glint analytics assistant",
	Long: `glint talks to the Glint analytics assistant from your terminal.

Running glint without arguments opens the interactive chat. Subcommands
manage credentials, stored sessions, and the assistant's memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No arguments means chat mode.
		return runInteractive()
	},
}

func init() {
	// Subcommands register themselves in their own files.
}
