// Package app contains the Cobra command tree for hourwatch.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

// logger is configured by the root command before any subcommand runs.
var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:   "hourwatch",
	Short: "Reconstruct R&D work hours from system events and git history",
	Long: `hourwatch rebuilds a timeline of work sessions from an exported system
event log and per-repository commit logs, fills gaps with synthetic sessions,
categorizes the work for WBSO reporting, checks it against a calendar and
reports progress toward the target hour count.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupOutput,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "hourwatch", appVersion)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Use a subcommand:")
		fmt.Fprintln(out, "  reconstruct  Run the pipeline and write the output artifacts")
		fmt.Fprintln(out, "  sessions     List reconstructed sessions")
		fmt.Fprintln(out, "  gaps         Show progress, breakdowns and items needing review")
		fmt.Fprintln(out, "  track        Record the run and compare with earlier runs")
		fmt.Fprintln(out, "  watch        Re-run at an interval and alert on changes")
		fmt.Fprintln(out, "  export       Write commit logs for local git repositories")
		return nil
	},
}

// setupOutput applies the colour and logging flags.
func setupOutput(cmd *cobra.Command, args []string) error {
	output.SetNoColor(flagNoColor || !output.IsTerminal(os.Stdout))

	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/hourwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}
