package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/glintlabs/glint/internal/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage backend credentials",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store the access token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the session and remove stored credentials",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated account",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().String("username", "", "account name (prompted when omitted)")
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(authCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	username, err := cmd.Flags().GetString("username")
	if err != nil {
		return err
	}
	if username == "" {
		fmt.Print("Username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return errors.New("username is required")
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	tok, err := rt.client.Login(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	creds := auth.Credentials{
		AccessToken: string(tok.AccessToken),
		TokenType:   string(tok.TokenType),
		Username:    string(tok.User.Username),
		SavedAt:     time.Now().UTC(),
	}
	if creds.Username == "" {
		creds.Username = username
	}
	if err := rt.store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("Logged in as %s\n", creds.Username)
	return nil
}

// readPassword reads the password without echo when stdin is a
// terminal, falling back to a plain line read otherwise.
func readPassword() (string, error) {
	fmt.Print("Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	// Local credentials are cleared even when the server call fails,
	// otherwise a dead backend would pin the token forever.
	if err := rt.client.Logout(cmd.Context()); err != nil {
		rt.logger.Warn("server logout failed, clearing local credentials anyway", "error", err)
	}
	if err := rt.store.Clear(); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}

	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	user, err := rt.client.CurrentUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}

	fmt.Printf("Username: %s\n", user.Username)
	if user.Email != "" {
		fmt.Printf("Email:    %s\n", user.Email)
	}
	if user.Role != "" {
		fmt.Printf("Role:     %s\n", user.Role)
	}
	if len(user.DomainAgents) > 0 {
		fmt.Printf("Agents:   %s\n", strings.Join(user.DomainAgents, ", "))
	}
	return nil
}
