package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"calsync/internal/cli"
	"calsync/internal/slack"
	"calsync/internal/status"
)

// Sync-specific flags
var syncDryRun bool

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Set your Slack status from today's calendar",
	Long: `Fetch today's calendar, match all-day events against the status
rules, and set your Slack status accordingly.

The first all-day event whose subject starts with a known prefix wins.
The status expires at the end of the local day.

Examples:
  calsync sync            # Sync now
  calsync sync --dry-run  # Show the decision without touching Slack`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show the status decision without calling Slack")
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := newSession(nil)
	if err != nil {
		return err
	}
	return syncOnce(cmd.Context(), s, syncDryRun)
}

// syncOnce runs one full sync cycle: resolve credential, fetch today's
// events, match rules, and set the Slack status. Shared with the daemon.
func syncOnce(ctx context.Context, s *session, dryRun bool) error {
	rules, err := status.LoadRules(s.cfg.RulesFile)
	if err != nil {
		return err
	}

	client, err := s.graphClient(ctx)
	if err != nil {
		return err
	}

	start, end := dayBounds(time.Now())
	events, err := client.CalendarView(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch calendar: %w", err)
	}

	decision, ok := status.Match(events, rules, time.Now())
	if !ok {
		fmt.Println("No matching all-day event found; leaving status unchanged.")
		return nil
	}

	fmt.Printf("Matched %q: %s %s (until %s)\n",
		cli.Ellipsize(decision.Subject, 60), decision.Emoji, decision.Text,
		decision.Expiration.Format("15:04"))

	if dryRun {
		fmt.Println("Dry run: Slack status not changed.")
		return nil
	}

	if s.cfg.SlackToken == "" {
		return fmt.Errorf("SLACK_API_TOKEN is not set")
	}

	slackClient := slack.NewClient(s.cfg.SlackToken, "")
	if err := slackClient.SetStatus(ctx, decision.Text, decision.Emoji, decision.Expiration); err != nil {
		return fmt.Errorf("failed to set slack status: %w", err)
	}

	fmt.Println("Slack status updated.")
	return nil
}
