package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/hourwatch/internal/pipeline"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

func result(eligible float64, sessions ...string) *pipeline.Result {
	res := &pipeline.Result{
		Totals: timeline.Totals{
			EligibleHours: eligible,
			TargetHours:   20,
			Status:        timeline.StatusInProgress,
		},
	}
	if eligible >= 20 {
		res.Totals.Status = timeline.StatusAchieved
	}
	for _, id := range sessions {
		res.Sessions = append(res.Sessions, timeline.WorkSession{
			SessionID: id,
			Source:    timeline.SourceReal,
			WorkHours: 4,
			Category:  timeline.CategoryGeneralRD,
		})
	}
	return res
}

// sequence returns a SnapshotFunc that yields the given results in order
// and repeats the last one.
func sequence(results ...*pipeline.Result) SnapshotFunc {
	i := 0
	return func(context.Context) (*pipeline.Result, error) {
		r := results[i]
		if i < len(results)-1 {
			i++
		}
		return r, nil
	}
}

func titles(alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Title
	}
	return out
}

func TestCompare_NewSessionAndHoursUp(t *testing.T) {
	now := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	prev := NewState(result(4, "S1"), now)
	curr := NewState(result(8, "S1", "S2"), now)

	alerts := Compare(prev, curr)
	assert.Equal(t, []string{"New session: S2", "Eligible hours increased"}, titles(alerts))
	for _, a := range alerts {
		assert.Equal(t, LevelInfo, a.Level)
	}
}

func TestCompare_ReviewIsCritical(t *testing.T) {
	now := time.Now()
	prev := NewState(result(4, "S1"), now)
	withReview := result(4, "S1")
	withReview.Review = []timeline.ConflictRecord{{
		SessionID:           "S1",
		OverlappingEventRef: "Offsite",
		OverlapHours:        3,
		Severity:            timeline.SeverityLong,
	}}
	curr := NewState(withReview, now)

	alerts := Compare(prev, curr)
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelCritical, alerts[0].Level)
	assert.Equal(t, "Conflict needs review: S1", alerts[0].Title)
	assert.Contains(t, alerts[0].Message, "Offsite")
}

func TestCompare_Warnings(t *testing.T) {
	now := time.Now()
	p := result(8, "S1", "S2")
	p.Notes.SkippedRecords = 1
	c := result(4, "S1")
	c.Notes.SkippedRecords = 3
	c.Notes.UnassignedCommits = 2

	alerts := Compare(NewState(p, now), NewState(c, now))
	assert.Equal(t, []string{
		"Eligible hours dropped",
		"More input records skipped",
		"Unassigned commits increased",
		"Session disappeared: S2",
	}, titles(alerts))
}

func TestCompare_TargetReached(t *testing.T) {
	now := time.Now()
	alerts := Compare(NewState(result(16, "S1"), now), NewState(result(20, "S1"), now))
	assert.Contains(t, titles(alerts), "Target reached")
}

func TestCompare_NoChange(t *testing.T) {
	now := time.Now()
	assert.Empty(t, Compare(NewState(result(4, "S1"), now), NewState(result(4, "S1"), now)))
}

func TestCheck_ComparesWithPreviousSnapshot(t *testing.T) {
	dropped := result(2)
	dropped.Notes.UnassignedCommits = 1
	w := New(sequence(result(4, "S1"), dropped, dropped), time.Minute, nil)

	ctx := context.Background()
	first, err := w.Snapshot(ctx)
	require.NoError(t, err)
	w.previous = first

	assert.Equal(t, []string{
		"Eligible hours dropped",
		"Unassigned commits increased",
		"Session disappeared: S1",
	}, titles(w.Check(ctx)))
	assert.Empty(t, w.Check(ctx))
}

func TestCheck_SnapshotErrorReportedOnce(t *testing.T) {
	fail := true
	w := New(func(context.Context) (*pipeline.Result, error) {
		if fail {
			return nil, errors.New("events file vanished")
		}
		return result(4, "S1"), nil
	}, time.Minute, nil)
	ctx := context.Background()

	alerts := w.Check(ctx)
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelWarning, alerts[0].Level)
	assert.Equal(t, "events file vanished", alerts[0].Message)

	assert.Empty(t, w.Check(ctx), "repeated failure is suppressed")

	fail = false
	assert.Empty(t, w.Check(ctx), "first good snapshot is the new baseline")

	fail = true
	assert.Len(t, w.Check(ctx), 1, "a failure after recovery is reported again")
}

func TestRun_StopsOnCancel(t *testing.T) {
	var got []Alert
	results := []*pipeline.Result{result(4, "S1"), result(8, "S1", "S2")}
	w := New(sequence(results...), 10*time.Millisecond, func(a Alert) { got = append(got, a) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, titles(got), "New session: S2")
}

func TestRun_InitialSnapshotError(t *testing.T) {
	w := New(func(context.Context) (*pipeline.Result, error) {
		return nil, errors.New("boom")
	}, time.Minute, nil)
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial snapshot")
}
