package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/config"
	"github.com/blackwell-systems/hourwatch/internal/output"
	"github.com/blackwell-systems/hourwatch/internal/pipeline"
	"github.com/blackwell-systems/hourwatch/internal/watcher"
)

var (
	watchInputs   inputFlags
	watchInterval string
	watchNotify   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the reconstruction and alert on changes",
	Long: `Re-read the inputs at a fixed interval, rebuild the timeline and print
alerts when something notable changes: new sessions, conflicts that need
manual review, dropping eligible hours or more skipped records.

Examples:
  hourwatch watch                  # check every 5 minutes (ctrl-c to stop)
  hourwatch watch --interval 30s
  hourwatch watch --notify warning # desktop notifications for warnings and up`,
	RunE: runWatch,
}

func init() {
	watchInputs.register(watchCmd)
	watchCmd.Flags().StringVar(&watchInterval, "interval", "5m", "Check interval as duration string (e.g. 30s, 10m)")
	watchCmd.Flags().StringVar(&watchNotify, "notify", "", "Send desktop notifications for alerts at or above this level (info, warning, critical)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, err := time.ParseDuration(watchInterval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", watchInterval, err)
	}
	if interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", interval)
	}
	switch watchNotify {
	case "", watcher.LevelInfo, watcher.LevelWarning, watcher.LevelCritical:
	default:
		return fmt.Errorf("invalid --notify %q: want info, warning or critical", watchNotify)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	watchInputs.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var notifier *watcher.Notifier
	if watchNotify != "" {
		notifier = watcher.NewNotifier(watchNotify, cmd.ErrOrStderr())
	}
	w := watcher.New(snapshotFunc(cfg), interval, func(a watcher.Alert) {
		printAlert(out, a)
		if notifier != nil {
			if err := notifier.Notify(a); err != nil {
				logger.Warn("notification failed", "error", err)
			}
		}
	})

	initial, err := w.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("initial snapshot failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "hourwatch watching... (checking every %s)\n", interval)
	_, _ = fmt.Fprintf(out, "Baseline: %d sessions, %s\n",
		initial.SessionCount, output.ProgressBar(initial.EligibleHours, initial.TargetHours, 20))

	err = w.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// snapshotFunc reloads every input and reruns the pipeline.
func snapshotFunc(cfg *config.Config) watcher.SnapshotFunc {
	return func(ctx context.Context) (*pipeline.Result, error) {
		in, err := pipeline.Load(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return pipeline.Run(ctx, cfg, in, logger)
	}
}

func printAlert(w io.Writer, a watcher.Alert) {
	timestamp := a.Time.Format("15:04:05")
	_, _ = fmt.Fprintf(w, "[%s] %s %s\n", timestamp, alertIcon(a.Level), a.Title)
	if a.Message != "" {
		_, _ = fmt.Fprintf(w, "           %s\n", output.StyleMuted.Render(a.Message))
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return output.StyleError.Render("!!")
	case watcher.LevelWarning:
		return output.StyleWarning.Render("! ")
	case watcher.LevelInfo:
		return output.StyleSuccess.Render("✓ ")
	default:
		return "  "
	}
}
