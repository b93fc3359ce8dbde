package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/hourwatch/internal/config"
	"github.com/blackwell-systems/hourwatch/internal/ingest"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timezone = "UTC"
	return cfg
}

// sampleInputs builds one clean 9.5h day, one eligible commit on a day with
// no events, one foreign commit and one short calendar overlap.
func sampleInputs() Inputs {
	return Inputs{
		Events: []timeline.SystemEvent{
			{Timestamp: "2025-05-05 17:45:00", EventID: 1074, Category: timeline.EventShutdown},
			{Timestamp: "2025-05-05 08:15:00", EventID: 6005, Category: timeline.EventStartup},
		},
		Commits: []timeline.Commit{
			{Timestamp: "2025-05-05 11:00:00", RepoName: "api", Author: "Pieter Kuppens", Message: "Add JWT auth", Hash: "a1", IsEligible: true},
			{Timestamp: "2025-05-06 09:30:00", RepoName: "api", Author: "Pieter Kuppens", Message: "Add audit trail export", Hash: "b2", IsEligible: true},
			{Timestamp: "2025-05-07 20:00:00", RepoName: "web", Author: "Other Dev", Message: "Fix typo", Hash: "c3"},
		},
		Calendar: []timeline.Commitment{
			{Start: "2025-05-05 17:00:00", End: "2025-05-05 17:30:00", Summary: "Dentist"},
		},
		LoadNotes: ingest.NewNotes(),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := Run(context.Background(), testConfig(), sampleInputs(), quietLogger())
	require.NoError(t, err)

	require.Len(t, res.Sessions, 2)

	real := res.Sessions[0]
	assert.Equal(t, timeline.SourceReal, real.Source)
	assert.Equal(t, timeline.CategoryAccessControl, real.Category)
	assert.True(t, real.IsEligible)
	assert.Equal(t, timepoint.TimePoint("2025-05-05 08:15:00"), real.Start)
	assert.Equal(t, timepoint.TimePoint("2025-05-05 17:00:00"), real.End, "short conflict moves the end")
	assert.InDelta(t, 8.75, real.DurationHours, 1e-9)
	assert.InDelta(t, 8.25, real.WorkHours, 1e-9)
	require.Len(t, real.Conflicts, 1)
	assert.Equal(t, timeline.ResolutionAdjusted, real.Conflicts[0].Resolution)
	assert.Equal(t, timepoint.TimePoint("2025-05-05 17:45:00"), real.Conflicts[0].OriginalEnd)

	syn := res.Sessions[1]
	assert.Equal(t, timeline.SourceSynthetic, syn.Source)
	assert.Equal(t, "morning", syn.Slot)
	assert.Equal(t, timeline.CategoryAuditLogging, syn.Category)
	assert.InDelta(t, 4.0, syn.DurationHours, 1e-9)
	assert.InDelta(t, 3.5, syn.WorkHours, 1e-9)
	assert.Equal(t, timeline.ConfidenceSynthetic, syn.Confidence)

	require.Contains(t, res.Unassigned, "2025-05-07")
	assert.Equal(t, 1, res.Unassigned.Count())
	assert.Empty(t, res.Review)

	assert.Equal(t, 2, res.Totals.TotalSessions)
	assert.InDelta(t, 11.75, res.Totals.EligibleHours, 1e-9)
	assert.InDelta(t, 498.25, res.Totals.Gap, 1e-9)
	assert.Equal(t, timeline.StatusInProgress, res.Totals.Status)

	assert.Equal(t, 1, res.Notes.SyntheticSessions)
	assert.Equal(t, 1, res.Notes.SyntheticSkipNoElig)
	assert.Equal(t, 1, res.Notes.UnassignedCommits)
	assert.Equal(t, 1, res.Notes.ConflictsAdjusted)
	assert.Equal(t, 0, res.Notes.ConflictsForReview)
}

func TestRun_ConservesCommits(t *testing.T) {
	in := sampleInputs()
	res, err := Run(context.Background(), testConfig(), in, quietLogger())
	require.NoError(t, err)

	seen := map[string]int{}
	for _, s := range res.Sessions {
		for _, c := range s.AssignedCommits {
			seen[c.Hash]++
		}
	}
	for _, commits := range res.Unassigned {
		for _, c := range commits {
			seen[c.Hash]++
		}
	}
	require.Len(t, seen, len(in.Commits))
	for _, c := range in.Commits {
		assert.Equal(t, 1, seen[c.Hash], "commit %s placed exactly once", c.Hash)
	}
}

func TestRun_DoesNotMutateInputs(t *testing.T) {
	in := sampleInputs()
	firstEvent := in.Events[0]
	_, err := Run(context.Background(), testConfig(), in, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, firstEvent, in.Events[0])
	assert.Equal(t, timepoint.TimePoint("2025-05-05 17:00:00"), in.Calendar[0].Start)
}

func TestRun_InvalidConfigAbortsBeforeProcessing(t *testing.T) {
	cfg := testConfig()
	cfg.TargetHours = -1

	res, err := Run(context.Background(), cfg, sampleInputs(), quietLogger())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testConfig(), sampleInputs(), quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_LongConflictGoesToReview(t *testing.T) {
	in := sampleInputs()
	in.Calendar = []timeline.Commitment{
		{Start: "2025-05-05 09:00:00", End: "2025-05-05 12:00:00", Summary: "Workshop"},
	}

	res, err := Run(context.Background(), testConfig(), in, quietLogger())
	require.NoError(t, err)
	require.Len(t, res.Review, 1)
	assert.Equal(t, timeline.SeverityLong, res.Review[0].Severity)
	assert.Equal(t, 1, res.Totals.ReviewCount)
	assert.Equal(t, timepoint.TimePoint("2025-05-05 17:45:00"), res.Sessions[0].End)
}

func TestRun_EmptyInputs(t *testing.T) {
	res, err := Run(context.Background(), testConfig(), Inputs{}, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Sessions)
	assert.NotNil(t, res.Review)
	assert.Equal(t, 0, res.Totals.TotalSessions)
	assert.InDelta(t, config.DefaultTargetHours, res.Totals.Gap, 1e-9)
}

func TestRun_RecordsDetectorNotes(t *testing.T) {
	in := Inputs{
		Events: []timeline.SystemEvent{
			{Timestamp: "2025-05-05 06:00:00", EventID: 6005, Category: timeline.EventStartup},
			{Timestamp: "2025-05-05 09:00:00", EventID: 6005, Category: timeline.EventStartup},
			{Timestamp: "2025-05-05 09:10:00", EventID: 1074, Category: timeline.EventShutdown},
		},
	}
	res, err := Run(context.Background(), testConfig(), in, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Sessions)
	assert.Equal(t, 1, res.Notes.OutsideWindowEvents)
	assert.Equal(t, 1, res.Notes.DiscardedShort)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Inputs.Events = filepath.Join(dir, "system_events.csv")
	cfg.Inputs.CommitsDir = filepath.Join(dir, "commits")
	cfg.Inputs.Calendar = filepath.Join(dir, "calendar.yaml")
	cfg.Inputs.OutputDir = filepath.Join(dir, "out")

	writeFile(t, cfg.Inputs.Events, "DateTime,EventID\n"+
		"2025-05-05 08:15:00,6005\n"+
		"garbage,6005\n"+
		"2025-05-05 17:45:00,1074\n")
	writeFile(t, filepath.Join(cfg.Inputs.CommitsDir, "api_commits.txt"),
		"2025-05-05 11:00:00|1746442800|Add JWT auth|Pieter Kuppens|a1\n"+
			"2025-04-02 10:00:00|1743588000|Old work|Pieter Kuppens|z0\n")
	writeFile(t, filepath.Join(cfg.Inputs.CommitsDir, "web_commits.txt"),
		"2025-05-06 09:30:00|1746523800|Add audit trail export|Pieter Kuppens|b2\n")
	writeFile(t, cfg.Inputs.Calendar, "- start: \"2025-05-05 17:00:00\"\n  end: \"2025-05-05 17:30:00\"\n  summary: Dentist\n")
	return cfg
}

func TestLoadAndRun_FromFiles(t *testing.T) {
	cfg := fixtureConfig(t)

	in, err := Load(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Len(t, in.Events, 2)
	assert.Len(t, in.Commits, 2)
	assert.Len(t, in.Calendar, 1)
	assert.Equal(t, 1, in.FilteredCommits)

	res, err := Run(context.Background(), cfg, in, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notes.SkippedRecords, "cutoff filtering is not a skip")
	assert.Equal(t, 1, res.Notes.SkippedByReason[ingest.ReasonBadTimestamp])
	assert.Equal(t, 1, res.Notes.FilteredCommits)
	assert.Len(t, res.Sessions, 2)
	assert.InDelta(t, 11.75, res.Totals.EligibleHours, 1e-9)
}

func TestLoad_MissingEventsFile(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Inputs.Events = filepath.Join(t.TempDir(), "nope.csv")

	_, err := Load(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading events")
}

func TestWriteArtifacts_Deterministic(t *testing.T) {
	cfg := fixtureConfig(t)

	render := func(dir string) map[string][]byte {
		in, err := Load(context.Background(), cfg, quietLogger())
		require.NoError(t, err)
		res, err := Run(context.Background(), cfg, in, quietLogger())
		require.NoError(t, err)
		paths, err := WriteArtifacts(dir, res)
		require.NoError(t, err)
		require.Len(t, paths, 5)

		out := map[string][]byte{}
		for _, p := range paths {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			out[filepath.Base(p)] = data
		}
		return out
	}

	first := render(filepath.Join(t.TempDir(), "a"))
	second := render(filepath.Join(t.TempDir(), "b"))
	assert.Equal(t, first, second)
	assert.Contains(t, string(first[TotalsFile]), `"achievement_status": "IN_PROGRESS"`)
	assert.Contains(t, string(first[SessionsFile]), `"session_id": "real-20250505-081500"`)
}

func TestUnassignedReport_SortedByDate(t *testing.T) {
	r := &Result{Unassigned: timeline.Unassigned{
		"2025-05-09": {{Hash: "x", IsEligible: true}},
		"2025-05-01": {{Hash: "y"}, {Hash: "z", IsEligible: true}},
	}}
	days := r.UnassignedReport()
	require.Len(t, days, 2)
	assert.Equal(t, "2025-05-01", days[0].Date)
	assert.Equal(t, 2, days[0].Commits)
	assert.Equal(t, 1, days[0].EligibleCount)
	assert.Equal(t, "2025-05-09", days[1].Date)
}
