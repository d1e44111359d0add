package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"calsync/internal/graph"
)

// statusCheckTimeout bounds the server-side verification call.
const statusCheckTimeout = 10 * time.Second

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the status of the cached Microsoft Graph credential.

The cached token is verified against the Graph API, which catches tokens
that were invalidated server-side before their local expiry.`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession(nil)
	if err != nil {
		return err
	}

	fmt.Printf("Token file:  %s\n", s.store.Path())

	cred, err := s.store.Load()
	if err != nil {
		// Corrupt record: same user action as an absent one.
		fmt.Printf("Status:      %s\n", text.FgYellow.Sprint("Corrupt credential"))
		fmt.Println("Run: calsync auth login")
		return nil
	}
	if cred == nil {
		fmt.Printf("Status:      %s\n", text.FgYellow.Sprint("Not authenticated"))
		fmt.Println("Run: calsync auth login")
		return nil
	}

	if cred.RefreshToken != "" {
		fmt.Printf("Refresh:     %s\n", text.FgGreen.Sprint("Available"))
	} else {
		fmt.Printf("Refresh:     %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	fmt.Printf("Expires:     %s\n", formatExpiry(cred.ExpiresAt))

	// Verify server-side: a locally unexpired token can still have been
	// revoked by the identity provider.
	ctx, cancel := context.WithTimeout(cmd.Context(), statusCheckTimeout)
	defer cancel()

	if !cred.Valid(time.Now()) {
		fmt.Printf("Status:      %s\n", text.FgYellow.Sprint("Expired locally"))
		fmt.Println("The next command will refresh or re-authorize automatically.")
		return nil
	}

	err = s.probe(ctx, s.provider.WrapCredential(cred))
	switch {
	case err == nil:
		fmt.Printf("Status:      %s\n", text.FgGreen.Sprint("Authenticated"))
		if s.user != nil {
			fmt.Printf("Identity:    %s (%s)\n", s.user.DisplayName, s.user.UserPrincipalName)
		}
	case graph.IsAuthError(err):
		_ = s.store.Clear()
		fmt.Printf("Status:      %s\n", text.FgYellow.Sprint("Token invalidated"))
		fmt.Println("Your session was terminated by the identity provider.")
		fmt.Println("Run: calsync auth login")
	default:
		fmt.Printf("Status:      %s\n", text.FgRed.Sprint("Verification failed"))
		fmt.Printf("Could not reach the Graph API: %v\n", err)
	}
	return nil
}

// formatExpiry renders an expiry with its direction relative to now.
func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Until(t).Round(time.Minute)
	if d < 0 {
		return fmt.Sprintf("%s (%s ago)", t.Format(time.RFC1123), -d)
	}
	return fmt.Sprintf("%s (in %s)", t.Format(time.RFC1123), d)
}
