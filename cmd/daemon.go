package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"calsync/internal/cli"
)

// Daemon-specific flags
var daemonInterval time.Duration

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the status sync periodically",
	Long: `Run calsync as a long-lived process that syncs the Slack status on a
fixed interval. When a rules file is configured, changes to it trigger an
immediate re-sync.

Intended to run under systemd; readiness is signaled via sd_notify.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 15*time.Minute, "Time between sync cycles")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := newSession(nil)
	if err != nil {
		return err
	}

	// The daemon has nobody watching the terminal, so it refuses to start
	// the interactive device-code flow. Require a credential that is
	// usable or at least refreshable.
	cred, err := s.store.Load()
	if err != nil || cred == nil || (!cred.Valid(time.Now()) && cred.RefreshToken == "") {
		return &cli.AuthRequiredError{}
	}

	// Run once up front so a broken setup fails fast, before we report
	// readiness.
	if err := syncOnce(ctx, s, false); err != nil {
		return err
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Warn("failed to notify systemd", "error", err.Error())
	} else if sent {
		slog.Debug("systemd notified of readiness")
	}

	rulesChanged, closeWatcher := watchRulesFile(s.cfg.RulesFile)
	defer closeWatcher()

	ticker := time.NewTicker(daemonInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Shutting down.")
			return nil
		case <-rulesChanged:
			slog.Info("rules file changed, re-syncing")
			runDaemonCycle(ctx, s)
		case <-ticker.C:
			runDaemonCycle(ctx, s)
		}
	}
}

// runDaemonCycle runs one sync cycle, logging instead of exiting on
// failure so a transient error does not kill the daemon.
func runDaemonCycle(ctx context.Context, s *session) {
	if err := syncOnce(ctx, s, false); err != nil {
		slog.Error("sync cycle failed", "error", err.Error())
	}
}

// watchRulesFile watches the rules file for changes via fsnotify. When the
// path is empty or the watcher can not be created the returned channel
// never fires; the periodic ticker still covers those setups.
func watchRulesFile(path string) (<-chan struct{}, func()) {
	changed := make(chan struct{}, 1)
	if path == "" {
		return changed, func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("failed to create rules watcher, relying on interval only", "error", err.Error())
		return changed, func() {}
	}
	if err := watcher.Add(path); err != nil {
		slog.Warn("failed to watch rules file, relying on interval only",
			"path", path, "error", err.Error())
		watcher.Close()
		return changed, func() {}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Coalesce bursts of write events.
				select {
				case changed <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("rules watcher error", "error", err.Error())
			}
		}
	}()

	return changed, func() { watcher.Close() }
}
