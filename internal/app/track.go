package app

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/config"
	"github.com/blackwell-systems/hourwatch/internal/output"
	"github.com/blackwell-systems/hourwatch/internal/store"
)

var (
	trackInputs  inputFlags
	trackCompare int
	trackHistory int
	trackDB      string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record the run and compare with earlier runs",
	Long: `Run the pipeline, store the totals in the local run history and compare
against a previous run to show deltas with trend arrows.`,
	RunE: runTrack,
}

func init() {
	trackInputs.register(trackCmd)
	trackCmd.Flags().IntVar(&trackCompare, "compare", 1, "Compare against Nth previous run (1 = most recent)")
	trackCmd.Flags().IntVar(&trackHistory, "history", 0, "Show headline totals across N most recent runs")
	trackCmd.Flags().StringVar(&trackDB, "db", "", "Run history database (default: ~/.config/hourwatch/hourwatch.db)")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	if trackCompare < 1 {
		return fmt.Errorf("--compare must be at least 1, got %d", trackCompare)
	}

	_, res, err := reconstruct(cmd, &trackInputs)
	if err != nil {
		return err
	}

	dbPath := trackDB
	if dbPath == "" {
		dbPath = config.DBPath()
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	run := store.NewRun("track", appVersion, res.Totals, res.Notes.UnassignedCommits)
	if err := db.SaveRun(cmd.Context(), run, store.MetricsFromTotals(res.Totals), store.SessionRows(res.Sessions), logger); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if trackHistory > 0 {
		return renderHistory(out, db, trackHistory)
	}

	// The new run is #1, so the Nth previous run is at offset N+1.
	prev, err := db.GetRunN(trackCompare + 1)
	if err != nil {
		return fmt.Errorf("loading previous run: %w", err)
	}

	var diff *store.RunDiff
	if prev != nil {
		d := store.Diff(prev, run)
		diff = &d
	}

	if flagJSON {
		result := map[string]any{"run": run}
		if diff != nil {
			result["diff"] = diff
		}
		return writeJSON(out, result)
	}

	renderTrack(out, run, diff)
	if diff != nil {
		return renderCategoryDeltas(out, db, prev.ID, run.ID)
	}
	return nil
}

func renderTrack(w io.Writer, current *store.Run, diff *store.RunDiff) {
	fmt.Fprintln(w, output.Section("Track: Run Comparison"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Run #%d (%s) taken at %s\n\n", current.Seq, current.ID[:8], current.TakenAt.Format("2006-01-02 15:04:05"))

	if diff == nil {
		fmt.Fprintln(w, " First run recorded. Run 'hourwatch track' again later to see trends.")
		return
	}

	fmt.Fprintf(w, " Comparing against run #%d (%s)\n\n",
		diff.Previous.Seq, diff.Previous.TakenAt.Format("2006-01-02 15:04:05"))

	tbl := output.NewTable("Metric", "Previous", "Current", "Delta", "Trend")
	for _, d := range diff.Deltas {
		tbl.AddRow(
			d.Name,
			fmt.Sprintf("%.2f", d.Previous),
			fmt.Sprintf("%.2f", d.Current),
			fmt.Sprintf("%+.2f", d.Delta),
			output.TrendArrow(d.Delta, d.Direction == store.DirectionImproved),
		)
	}
	tbl.Fprint(w)
}

// renderCategoryDeltas compares the per-breakdown eligible hours of two runs.
func renderCategoryDeltas(w io.Writer, db *store.DB, prevID, curID string) error {
	prev, err := metricMap(db, prevID)
	if err != nil {
		return err
	}
	cur, err := metricMap(db, curID)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(cur))
	for name := range cur {
		names = append(names, name)
	}
	for name := range prev {
		if _, ok := cur[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	changed := output.NewTable("Breakdown", "Previous", "Current", "Trend")
	for _, name := range names {
		delta := cur[name] - prev[name]
		if delta == 0 {
			continue
		}
		changed.AddRow(name, output.Hours(prev[name]), output.Hours(cur[name]), output.TrendArrow(delta, delta > 0))
	}
	if changed.Len() == 0 {
		return nil
	}
	fmt.Fprintln(w, output.Section("Eligible hours by breakdown"))
	fmt.Fprintln(w)
	changed.Fprint(w)
	return nil
}

func metricMap(db *store.DB, runID string) (map[string]float64, error) {
	metrics, err := db.GetRunMetrics(runID)
	if err != nil {
		return nil, fmt.Errorf("loading metrics for run %s: %w", runID, err)
	}
	m := make(map[string]float64, len(metrics))
	for _, rm := range metrics {
		m[rm.Name] = rm.Value
	}
	return m, nil
}

// renderHistory shows the headline totals of the N most recent runs,
// oldest first.
func renderHistory(w io.Writer, db *store.DB, n int) error {
	runs, err := db.ListRuns(n)
	if err != nil {
		return fmt.Errorf("loading runs: %w", err)
	}
	slices.Reverse(runs)

	if flagJSON {
		return writeJSON(w, map[string]any{"history": runs})
	}

	fmt.Fprintln(w, output.Section("Track: Run History"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Showing %d most recent runs\n\n", len(runs))

	tbl := output.NewTable("Run", "Taken", "Sessions", "Eligible", "Gap", "Progress", "Review", "Trend")
	for i, r := range runs {
		trend := ""
		if i > 0 {
			trend = output.TrendArrow(r.EligibleHours-runs[i-1].EligibleHours, r.EligibleHours > runs[i-1].EligibleHours)
		}
		tbl.AddRow(
			fmt.Sprintf("#%d", r.Seq),
			r.TakenAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.TotalSessions),
			output.Hours(r.EligibleHours),
			output.Hours(r.Gap),
			fmt.Sprintf("%.1f%%", r.ProgressPct),
			fmt.Sprintf("%d", r.ReviewCount),
			trend,
		)
	}
	tbl.Fprint(w)
	return nil
}
