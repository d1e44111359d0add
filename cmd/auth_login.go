package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"calsync/internal/cli"
	"calsync/internal/oauth"
)

// Login-specific flags
var loginForce bool

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate to Microsoft Graph",
	Long: `Authenticate to Microsoft Graph using the OAuth2 device-code flow.

A verification URL and a short code are displayed; authorize the
application in a browser on any device. The resulting token is cached
and refreshed automatically by later commands.

Examples:
  calsync auth login          # Reuse or obtain a credential
  calsync auth login --force  # Discard the cached token first`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Discard any cached token and re-authenticate")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// The spinner runs while we wait for the user to authorize; it starts
	// once the device code has been displayed.
	wait := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	wait.Suffix = " Waiting for you to authorize the app..."

	s, err := newSession(func(session *oauth.DeviceAuthorization) {
		printDeviceCodePrompt(session)
		if !authQuiet {
			wait.Start()
		}
	})
	if err != nil {
		return err
	}

	if loginForce {
		if err := s.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear credential: %w", err)
		}
	}

	_, err = s.guard.ClientWithRetry(ctx)
	wait.Stop()
	if err != nil {
		return &cli.AuthFailedError{Reason: err}
	}

	if s.user != nil {
		authPrint("Logged in as %s (%s)\n", s.user.DisplayName, s.user.UserPrincipalName)
	} else {
		authPrint("Authorization complete.\n")
	}
	return nil
}
