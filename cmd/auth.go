package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authQuiet bool

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Microsoft Graph authentication",
	Long: `Manage authentication for calsync.

The auth command group provides subcommands to login, logout, and check
the status of the cached Microsoft Graph credential.

Examples:
  calsync auth login          # Run the device-code flow
  calsync auth login --force  # Discard the cached token and re-authenticate
  calsync auth status         # Show credential status
  calsync auth logout         # Clear the cached token`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the cached credential",
	Long: `Clear the cached Microsoft Graph credential.

The next command that needs Graph access will run the device-code flow
again.`,
	RunE: runAuthLogout,
}

// authPrint prints output only if the --quiet flag is not set. Use this for
// progress messages and non-essential output.
func authPrint(format string, args ...interface{}) {
	if !authQuiet {
		fmt.Printf(format, args...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	s, err := newSession(nil)
	if err != nil {
		return err
	}

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	authPrint("Logged out. Cached credential removed from %s\n", s.store.Path())
	return nil
}
