package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/output"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

var (
	sessionsInputs       inputFlags
	sessionsFlagSource   string
	sessionsFlagEligible bool
	sessionsFlagMonth    string
	sessionsFlagCategory string
	sessionsFlagLimit    int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List reconstructed sessions",
	Long: `List the reconstructed sessions in chronological order, or show one
session in detail with its commits and conflicts.

Examples:
  hourwatch sessions                          # every session
  hourwatch sessions --source synthetic       # only generated sessions
  hourwatch sessions --eligible --month 2025-05
  hourwatch sessions --category ACCESS_CONTROL --limit 10
  hourwatch sessions real-20250505-081500     # inspect one session`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	sessionsInputs.register(sessionsCmd)
	sessionsCmd.Flags().StringVar(&sessionsFlagSource, "source", "", "Filter by source: real, synthetic")
	sessionsCmd.Flags().BoolVar(&sessionsFlagEligible, "eligible", false, "Only eligible sessions")
	sessionsCmd.Flags().StringVar(&sessionsFlagMonth, "month", "", "Only sessions starting in this month (YYYY-MM)")
	sessionsCmd.Flags().StringVar(&sessionsFlagCategory, "category", "", "Only sessions in this category")
	sessionsCmd.Flags().IntVar(&sessionsFlagLimit, "limit", 0, "Maximum sessions to display (0 = all)")
	rootCmd.AddCommand(sessionsCmd)
}

// sessionFilter selects sessions for display. Zero values match everything.
type sessionFilter struct {
	source   string
	eligible bool
	month    string
	category string
	limit    int
}

func (f sessionFilter) apply(sessions []timeline.WorkSession) []timeline.WorkSession {
	var out []timeline.WorkSession
	for _, s := range sessions {
		if f.source != "" && !strings.EqualFold(string(s.Source), f.source) {
			continue
		}
		if f.eligible && !s.IsEligible {
			continue
		}
		if f.month != "" && s.Start.Month() != f.month {
			continue
		}
		if f.category != "" && !strings.EqualFold(string(s.Category), f.category) {
			continue
		}
		out = append(out, s)
		if f.limit > 0 && len(out) == f.limit {
			break
		}
	}
	return out
}

func runSessions(cmd *cobra.Command, args []string) error {
	switch strings.ToLower(sessionsFlagSource) {
	case "", "real", "synthetic":
	default:
		return fmt.Errorf("invalid --source %q: use real or synthetic", sessionsFlagSource)
	}

	_, res, err := reconstruct(cmd, &sessionsInputs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		return runInspect(out, args[0], res.Sessions)
	}

	rows := sessionFilter{
		source:   sessionsFlagSource,
		eligible: sessionsFlagEligible,
		month:    sessionsFlagMonth,
		category: sessionsFlagCategory,
		limit:    sessionsFlagLimit,
	}.apply(res.Sessions)

	if flagJSON {
		if rows == nil {
			rows = []timeline.WorkSession{}
		}
		return writeJSON(out, rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, " No sessions found matching filters.")
		return nil
	}
	renderSessions(out, rows)
	return nil
}

func renderSessions(w io.Writer, sessions []timeline.WorkSession) {
	fmt.Fprintln(w, output.Section(fmt.Sprintf("Sessions (%d)", len(sessions))))
	fmt.Fprintln(w)

	tbl := output.NewTable("ID", "Start", "End", "Work", "Conf", "Source", "Category", "Commits", "Flags")
	for _, s := range sessions {
		source := string(s.Source)
		if s.Source == timeline.SourceSynthetic {
			source = output.StyleSynthetic.Render(source)
		}
		tbl.AddRow(
			s.SessionID,
			string(s.Start),
			s.End.Clock(),
			output.Hours(s.WorkHours),
			output.Confidence(s.Confidence),
			source,
			string(s.Category),
			fmt.Sprintf("%d", len(s.AssignedCommits)),
			sessionFlags(s),
		)
	}
	tbl.Fprint(w)
}

// sessionFlags summarizes the notable conditions of a session.
func sessionFlags(s timeline.WorkSession) string {
	var flags []string
	if !s.IsEligible {
		flags = append(flags, "not-eligible")
	}
	if s.Unclosed {
		flags = append(flags, "unclosed")
	}
	for _, c := range s.Conflicts {
		if c.Resolution == timeline.ResolutionManualReview {
			flags = append(flags, output.StyleWarning.Render("review"))
			break
		}
	}
	if len(s.Conflicts) > 0 {
		flags = append(flags, fmt.Sprintf("conflicts:%d", len(s.Conflicts)))
	}
	return strings.Join(flags, " ")
}

// runInspect shows one session by full id or unique prefix.
func runInspect(w io.Writer, id string, sessions []timeline.WorkSession) error {
	var matches []timeline.WorkSession
	for _, s := range sessions {
		if s.SessionID == id {
			matches = []timeline.WorkSession{s}
			break
		}
		if strings.HasPrefix(s.SessionID, id) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("no session matching %q", id)
	case 1:
	default:
		return fmt.Errorf("%d sessions match %q; use a longer prefix", len(matches), id)
	}
	s := matches[0]

	if flagJSON {
		return writeJSON(w, s)
	}

	fmt.Fprintln(w, output.Section("Session "+s.SessionID))
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.KeyValue("Interval", fmt.Sprintf("%s - %s", s.Start, s.End)))
	fmt.Fprintln(w, output.KeyValue("Duration", output.Hours(s.DurationHours)))
	fmt.Fprintln(w, output.KeyValue("Work hours", output.Hours(s.WorkHours)))
	fmt.Fprintln(w, output.KeyValue("Confidence", output.Confidence(s.Confidence)))
	fmt.Fprintln(w, output.KeyValue("Source", string(s.Source)))
	if s.Slot != "" {
		fmt.Fprintln(w, output.KeyValue("Slot", s.Slot))
	}
	fmt.Fprintln(w, output.KeyValue("Eligible", fmt.Sprintf("%t", s.IsEligible)))
	fmt.Fprintln(w, output.KeyValue("Category", string(s.Category)))
	fmt.Fprintf(w, "\n %s\n", output.StyleMuted.Render(s.Justification))

	if len(s.AssignedCommits) > 0 {
		fmt.Fprintln(w, output.Section("Commits"))
		fmt.Fprintln(w)
		tbl := output.NewTable("Time", "Repo", "Hash", "Author", "Message")
		for _, c := range s.AssignedCommits {
			tbl.AddRow(c.Timestamp.Clock(), c.RepoName, shortHash(c.Hash), c.Author, truncate(c.Message, 60))
		}
		tbl.Fprint(w)
	}

	if len(s.Conflicts) > 0 {
		fmt.Fprintln(w, output.Section("Conflicts"))
		fmt.Fprintln(w)
		renderConflicts(w, s.Conflicts)
	}
	return nil
}

func renderConflicts(w io.Writer, records []timeline.ConflictRecord) {
	tbl := output.NewTable("Session", "Commitment", "Overlap", "Severity", "Resolution")
	for _, c := range records {
		resolution := c.Resolution
		if resolution == timeline.ResolutionManualReview {
			resolution = output.StyleWarning.Render(resolution)
		}
		tbl.AddRow(c.SessionID, c.OverlappingEventRef, output.Hours(c.OverlapHours), string(c.Severity), resolution)
	}
	tbl.Fprint(w)
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
