package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/output"
	"github.com/blackwell-systems/hourwatch/internal/pipeline"
	"github.com/blackwell-systems/hourwatch/internal/suggest"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

var (
	gapsInputs   inputFlags
	gapsFlagDays int
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show progress, breakdowns and items needing review",
	Long: `Show eligible hours against the target, the breakdown by category,
month and repository, calendar conflicts that need manual review, days with
commits no session covers, and records skipped while loading.`,
	RunE: runGaps,
}

func init() {
	gapsInputs.register(gapsCmd)
	gapsCmd.Flags().IntVar(&gapsFlagDays, "days", 15, "Maximum unassigned-commit days to list")
	rootCmd.AddCommand(gapsCmd)
}

// gapsOutput is the JSON-serializable output for the gaps command.
type gapsOutput struct {
	Totals      timeline.Totals           `json:"totals"`
	Review      []timeline.ConflictRecord `json:"review"`
	Unassigned  []pipeline.UnassignedDay  `json:"unassigned"`
	Notes       pipeline.Notes            `json:"processing_notes"`
	Suggestions []suggest.Suggestion      `json:"suggestions"`
}

func runGaps(cmd *cobra.Command, args []string) error {
	cfg, res, err := reconstruct(cmd, &gapsInputs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	suggestions := suggest.NewEngine().Run(suggest.NewContext(res, cfg.SlotTemplates()))
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}

	if flagJSON {
		return writeJSON(out, gapsOutput{
			Totals:      res.Totals,
			Review:      res.Review,
			Unassigned:  res.UnassignedReport(),
			Notes:       res.Notes,
			Suggestions: suggestions,
		})
	}

	renderGaps(out, res, gapsFlagDays)
	renderSuggestions(out, suggestions)
	return nil
}

func renderGaps(w io.Writer, res *pipeline.Result, maxDays int) {
	t := res.Totals

	fmt.Fprintln(w, output.Section("Progress"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, " "+output.ProgressBar(t.EligibleHours, t.TargetHours, 40))
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.KeyValue("Eligible hours", output.Hours(t.EligibleHours)))
	fmt.Fprintln(w, output.KeyValue("Non-eligible hours", output.Hours(t.NonEligibleHours)))
	fmt.Fprintln(w, output.KeyValue("Target", output.Hours(t.TargetHours)))
	gap := output.Hours(t.Gap)
	status := output.StyleWarning.Render(t.Status)
	if t.Status == timeline.StatusAchieved {
		status = output.StyleSuccess.Render(t.Status)
	} else {
		gap = output.StyleError.Render(gap)
	}
	fmt.Fprintln(w, output.KeyValue("Gap", gap))
	fmt.Fprintln(w, output.KeyValue("Status", status))
	fmt.Fprintln(w, output.KeyValue("Low-confidence sessions", fmt.Sprintf("%d", t.LowConfidenceSessions)))

	renderBuckets(w, "By category", "Category", t.ByCategory)
	renderBuckets(w, "By source", "Source", t.BySource)
	renderBuckets(w, "By month", "Month", t.ByMonth)
	renderBuckets(w, "By repository", "Repository", t.ByRepository)

	if len(res.Review) > 0 {
		fmt.Fprintln(w, output.Section(fmt.Sprintf("Needs manual review (%d)", len(res.Review))))
		fmt.Fprintln(w)
		renderConflicts(w, res.Review)
	}

	days := res.UnassignedReport()
	if len(days) > 0 {
		fmt.Fprintln(w, output.Section(fmt.Sprintf("Unassigned commits (%d days)", len(days))))
		fmt.Fprintln(w)
		tbl := output.NewTable("Date", "Commits", "Eligible", "Example")
		for i, d := range days {
			if maxDays > 0 && i == maxDays {
				break
			}
			example := ""
			if len(d.Records) > 0 {
				example = truncate(d.Records[0].Message, 50)
			}
			tbl.AddRow(d.Date, fmt.Sprintf("%d", d.Commits), fmt.Sprintf("%d", d.EligibleCount), example)
		}
		tbl.Fprint(w)
		if maxDays > 0 && len(days) > maxDays {
			fmt.Fprintf(w, " %s\n", output.StyleMuted.Render(fmt.Sprintf("... and %d more days", len(days)-maxDays)))
		}
	}

	renderNotes(w, res.Notes)
}

func renderSuggestions(w io.Writer, suggestions []suggest.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(w, output.Section("Suggestions"))
	fmt.Fprintln(w)
	for i, s := range suggestions {
		title := s.Title
		if s.Priority == suggest.PriorityCritical {
			title = output.StyleError.Render(title)
		}
		fmt.Fprintf(w, " %d. %s %s\n", i+1, output.StyleBold.Render(title), output.StyleMuted.Render("["+s.Category+"]"))
		fmt.Fprintf(w, "    %s\n", s.Description)
	}
}

func renderBuckets(w io.Writer, title, keyHeader string, buckets []timeline.Bucket) {
	if len(buckets) == 0 {
		return
	}
	fmt.Fprintln(w, output.Section(title))
	fmt.Fprintln(w)
	tbl := output.NewTable(keyHeader, "Sessions", "Hours", "Eligible")
	for _, b := range buckets {
		tbl.AddRow(b.Key, fmt.Sprintf("%d", b.Sessions), output.Hours(b.Hours), output.Hours(b.EligibleHours))
	}
	tbl.Fprint(w)
}

func renderNotes(w io.Writer, n pipeline.Notes) {
	issues := n.SkippedRecords + n.DiscardedShort + n.OutsideWindowEvents + len(n.IntervalErrors) + n.UnclosedSessions
	if issues == 0 {
		return
	}
	fmt.Fprintln(w, output.Section("Data quality"))
	fmt.Fprintln(w)
	tbl := output.NewTable("Issue", "Count")
	for _, reason := range sortedKeys(n.SkippedByReason) {
		tbl.AddRow("skipped: "+reason, fmt.Sprintf("%d", n.SkippedByReason[reason]))
	}
	if n.OutsideWindowEvents > 0 {
		tbl.AddRow("start events outside work window", fmt.Sprintf("%d", n.OutsideWindowEvents))
	}
	if n.DiscardedShort > 0 {
		tbl.AddRow("sessions below minimum length", fmt.Sprintf("%d", n.DiscardedShort))
	}
	if n.UnclosedSessions > 0 {
		tbl.AddRow("sessions without a closing event", fmt.Sprintf("%d", n.UnclosedSessions))
	}
	if len(n.IntervalErrors) > 0 {
		tbl.AddRow("invalid session intervals", fmt.Sprintf("%d", len(n.IntervalErrors)))
	}
	tbl.Fprint(w)
	for _, s := range n.Samples {
		fmt.Fprintf(w, " %s\n", output.StyleMuted.Render(s))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
