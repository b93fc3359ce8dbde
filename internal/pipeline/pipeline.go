// Package pipeline runs the batch transform from raw events and commits to
// a categorized, conflict-checked session timeline with totals.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/blackwell-systems/hourwatch/internal/config"
	"github.com/blackwell-systems/hourwatch/internal/ingest"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// Inputs are the loaded records a run works on.
type Inputs struct {
	Events   []timeline.SystemEvent
	Commits  []timeline.Commit
	Calendar []timeline.Commitment

	// LoadNotes carries records skipped while loading.
	LoadNotes ingest.Notes

	// FilteredCommits counts commits dropped by the cutoff date.
	FilteredCommits int
}

// Notes enumerates everything that was skipped or needs attention, so data
// quality problems are never hidden.
type Notes struct {
	InputEvents     int            `json:"input_events"`
	InputCommits    int            `json:"input_commits"`
	FilteredCommits int            `json:"filtered_commits"`
	SkippedRecords  int            `json:"skipped_records"`
	SkippedByReason map[string]int `json:"skipped_by_reason"`
	Samples         []string       `json:"samples,omitempty"`

	OutsideWindowEvents  int      `json:"outside_window_events"`
	DiscardedShort       int      `json:"discarded_short_sessions"`
	UnclosedSessions     int      `json:"unclosed_sessions"`
	IntervalErrors       []string `json:"interval_errors,omitempty"`
	SyntheticSessions    int      `json:"synthetic_sessions"`
	SyntheticSkipOverlap int      `json:"synthetic_skipped_overlap"`
	SyntheticSkipNoElig  int      `json:"synthetic_skipped_ineligible"`
	UnassignedCommits    int      `json:"unassigned_commits"`
	ConflictsAdjusted    int      `json:"conflicts_adjusted"`
	ConflictsForReview   int      `json:"conflicts_for_review"`
}

// Result is the output of Run.
type Result struct {
	Sessions   []timeline.WorkSession    `json:"sessions"`
	Unassigned timeline.Unassigned       `json:"unassigned"`
	Review     []timeline.ConflictRecord `json:"review"`
	Totals     timeline.Totals           `json:"totals"`
	Notes      Notes                     `json:"processing_notes"`
}

// Load reads every input named by cfg. Per-record problems are noted;
// unreadable files are errors. A missing calendar path means no calendar.
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Inputs, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return Inputs{}, err
	}
	norm := timepoint.NewNormalizer(0)
	in := Inputs{LoadNotes: ingest.NewNotes()}

	events, evNotes, err := ingest.LoadEventsFile(cfg.Inputs.Events, norm, logger)
	if err != nil {
		return in, fmt.Errorf("loading events: %w", err)
	}
	in.Events = events
	in.LoadNotes.Merge(evNotes)

	cutoff, _ := cfg.Cutoff()
	loc, _ := cfg.Location()
	batch, err := ingest.LoadCommitDir(ctx, cfg.Inputs.CommitsDir, ingest.CommitOptions{
		Cutoff:         cutoff,
		IdentityMarker: cfg.IdentityMarker,
		Location:       loc,
		Normalizer:     norm,
		Logger:         logger,
	})
	if err != nil {
		return in, fmt.Errorf("loading commits: %w", err)
	}
	in.Commits = batch.Commits
	in.FilteredCommits = batch.Filtered
	in.LoadNotes.Merge(batch.Notes)

	cal, calNotes, err := ingest.LoadCalendarFile(cfg.Inputs.Calendar, norm, logger)
	if err != nil {
		return in, fmt.Errorf("loading calendar: %w", err)
	}
	in.Calendar = cal
	in.LoadNotes.Merge(calNotes)

	logger.Debug("inputs loaded",
		"events", len(in.Events),
		"commits", len(in.Commits),
		"commitments", len(in.Calendar),
		"skipped", in.LoadNotes.Total(),
		"cached_timestamps", norm.Size())
	return in, nil
}

// Run executes detect, assign, synthesize, categorize, resolve and total in
// order. Configuration problems abort before any stage runs.
func Run(ctx context.Context, cfg *config.Config, in Inputs, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	notes := Notes{
		InputEvents:     len(in.Events),
		InputCommits:    len(in.Commits),
		FilteredCommits: in.FilteredCommits,
		SkippedRecords:  in.LoadNotes.Total() - in.LoadNotes.Skipped[ingest.ReasonBeforeCutoff],
		SkippedByReason: map[string]int{},
		Samples:         in.LoadNotes.Samples,
	}
	for reason, n := range in.LoadNotes.Skipped {
		if reason != ingest.ReasonBeforeCutoff {
			notes.SkippedByReason[reason] = n
		}
	}

	events := append([]timeline.SystemEvent(nil), in.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })

	detected := timeline.DetectSessions(events, cfg.DetectorOptions())
	notes.OutsideWindowEvents = detected.OutsideWindow
	notes.DiscardedShort = detected.Discarded
	for _, err := range detected.Errors {
		logger.Warn("discarding session", "error", err)
		notes.IntervalErrors = append(notes.IntervalErrors, err.Error())
	}
	for _, s := range detected.Sessions {
		if s.Unclosed {
			notes.UnclosedSessions++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assigned := timeline.AssignCommits(detected.Sessions, in.Commits)

	synth := timeline.GenerateSynthetic(assigned.Unassigned, assigned.Sessions, cfg.SlotTemplates())
	notes.SyntheticSessions = len(synth.Sessions)
	notes.SyntheticSkipOverlap = synth.SkippedOverlap
	notes.SyntheticSkipNoElig = synth.SkippedIneligible
	notes.UnassignedCommits = synth.Unassigned.Count()

	sessions := append(assigned.Sessions, synth.Sessions...)
	timeline.SortSessions(sessions)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessions = timeline.NewCategorizer(cfg.CategoryRules()).CategorizeAll(sessions)

	resolved := timeline.ResolveConflicts(sessions, in.Calendar, cfg.ConflictOptions())
	notes.ConflictsForReview = len(resolved.Review)
	notes.ConflictsAdjusted = len(resolved.Records) - len(resolved.Review)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := timeline.ComputeTotals(resolved.Sessions, cfg.TargetHours)

	logger.Info("timeline reconstructed",
		"sessions", totals.TotalSessions,
		"synthetic", notes.SyntheticSessions,
		"eligible_hours", totals.EligibleHours,
		"gap", totals.Gap,
		"unassigned", notes.UnassignedCommits,
		"review", notes.ConflictsForReview)

	review := resolved.Review
	if review == nil {
		review = []timeline.ConflictRecord{}
	}
	return &Result{
		Sessions:   resolved.Sessions,
		Unassigned: synth.Unassigned,
		Review:     review,
		Totals:     totals,
		Notes:      notes,
	}, nil
}
