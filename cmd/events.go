package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"calsync/internal/cli"
)

// Events-specific flags
var eventsAllDay bool

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List today's calendar events",
	Long: `List today's Outlook calendar events.

Useful for checking what the sync command will see.

Examples:
  calsync events            # All of today's events
  calsync events --all-day  # Only all-day events`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().BoolVar(&eventsAllDay, "all-day", false, "Only show all-day events")
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(nil)
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

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Subject", "Start", "End", "All day"})

	shown := 0
	for _, event := range events {
		if eventsAllDay && !event.IsAllDay {
			continue
		}
		allDay := ""
		if event.IsAllDay {
			allDay = "yes"
		}
		t.AppendRow(table.Row{
			cli.Ellipsize(event.Subject, 60),
			event.Start.Format("15:04"),
			event.End.Format("15:04"),
			allDay,
		})
		shown++
	}

	if shown == 0 {
		fmt.Println("No events found for today.")
		return nil
	}

	t.Render()
	return nil
}

// dayBounds returns the start and end of t's local day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
