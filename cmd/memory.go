package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage the assistant's server-side memory",
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the assistant's memory for your account",
	RunE:  runMemoryClear,
}

func init() {
	memoryClearCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	memoryCmd.AddCommand(memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryClear(cmd *cobra.Command, args []string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	if !yes {
		fmt.Print("This deletes all stored conversations and learned context. Type 'yes' to continue: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		if strings.TrimSpace(line) != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	if err := rt.client.ClearMemory(cmd.Context()); err != nil {
		return fmt.Errorf("clearing memory: %w", err)
	}

	fmt.Println("Assistant memory cleared.")
	return nil
}
