package ingest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// LoadEvents
// ---------------------------------------------------------------------------

func TestLoadEvents_ParsesAndSorts(t *testing.T) {
	csvData := `DateTime,EventId,Source
"5/3/2025 5:30:00 PM",1074,User32
"5/3/2025 8:00:00 AM",6005,EventLog
2025-05-03 12:00:00,42,Kernel-Power
2025-05-03T12:30:00+02:00,4624,Security
`
	events, notes, err := LoadEvents(strings.NewReader(csvData), EventOptions{
		Source:     "events.csv",
		Normalizer: timepoint.NewNormalizer(0),
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, notes.Total())

	require.Len(t, events, 4)
	assert.Equal(t, timeline.SystemEvent{Timestamp: "2025-05-03 08:00:00", EventID: 6005, Category: timeline.EventStartup}, events[0])
	assert.Equal(t, timeline.EventSleep, events[1].Category)
	assert.Equal(t, timeline.EventLogon, events[2].Category)
	assert.Equal(t, timepoint.TimePoint("2025-05-03 12:30:00"), events[2].Timestamp)
	assert.Equal(t, timeline.EventShutdown, events[3].Category)
}

func TestLoadEvents_SkipsMalformedRows(t *testing.T) {
	csvData := "TimeCreated,Id\n" +
		"2025-05-03 08:00:00,6005\n" +
		"not a date,6006\n" +
		"2025-05-03 09:00:00,abc\n" +
		"2025-05-03 10:00:00,9999\n" +
		"2025-05-03 11:00:00\n" +
		"2025-05-03 12:00:00,6006\n"

	events, notes, err := LoadEvents(strings.NewReader(csvData), EventOptions{Source: "ev.csv", Logger: quietLogger()})
	require.NoError(t, err)

	assert.Len(t, events, 2)
	assert.Equal(t, 4, notes.Total())
	assert.Equal(t, 1, notes.Skipped[ReasonBadTimestamp])
	assert.Equal(t, 1, notes.Skipped[ReasonBadEventID])
	assert.Equal(t, 1, notes.Skipped[ReasonUnknownEventID])
	assert.Equal(t, 1, notes.Skipped[ReasonShortRecord])
	require.NotEmpty(t, notes.Samples)
	assert.Contains(t, notes.Samples[0], "ev.csv:3")
}

func TestLoadEvents_MissingColumn(t *testing.T) {
	_, _, err := LoadEvents(strings.NewReader("When,What\n1,2\n"), EventOptions{Logger: quietLogger()})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadEvents_EmptyInput(t *testing.T) {
	events, notes, err := LoadEvents(strings.NewReader(""), EventOptions{Logger: quietLogger()})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, notes.Total())
}

func TestEventCategories_Table(t *testing.T) {
	want := map[int]timeline.EventCategory{
		6005: timeline.EventStartup,
		1074: timeline.EventShutdown,
		6006: timeline.EventShutdown,
		41:   timeline.EventUnexpectedShutdown,
		6008: timeline.EventUnexpectedShutdown,
		42:   timeline.EventSleep,
		4624: timeline.EventLogon,
		4634: timeline.EventLogoff,
		4647: timeline.EventLogoff,
	}
	for id, cat := range want {
		assert.Equal(t, cat, EventCategories[id], "event id %d", id)
	}
}

// ---------------------------------------------------------------------------
// LoadCommits
// ---------------------------------------------------------------------------

func commitOpts() CommitOptions {
	return CommitOptions{
		Cutoff:         "2025-05-01 00:00:00",
		IdentityMarker: "Kuppens",
		Location:       time.UTC,
		Normalizer:     timepoint.NewNormalizer(0),
		Logger:         quietLogger(),
	}
}

func TestLoadCommits_ParsesEligibilityAndCutoff(t *testing.T) {
	data := `datetime|timestamp|message|author|hash
2025-05-05T13:45:00+02:00|1746445500|Implement JWT auth|Pieter Kuppens|abc123
2025-04-30T10:00:00+02:00|1746000000|Old work|Pieter Kuppens|old1
2025-05-06T09:00:00+02:00|1746514800|fix: a|b pipes|Someone Else|def456

garbage line
`
	batch, err := LoadCommits(strings.NewReader(data), "api", "api_commits.txt", commitOpts())
	require.NoError(t, err)

	require.Len(t, batch.Commits, 2)
	c := batch.Commits[0]
	assert.Equal(t, timepoint.TimePoint("2025-05-05 13:45:00"), c.Timestamp)
	assert.Equal(t, "api", c.RepoName)
	assert.Equal(t, "Pieter Kuppens", c.Author)
	assert.Equal(t, "Implement JWT auth", c.Message)
	assert.Equal(t, "abc123", c.Hash)
	assert.True(t, c.IsEligible)

	assert.Equal(t, "fix: a|b pipes", batch.Commits[1].Message)
	assert.False(t, batch.Commits[1].IsEligible)

	assert.Equal(t, 1, batch.Filtered)
	assert.Equal(t, 1, batch.Notes.Skipped[ReasonBeforeCutoff])
	assert.Equal(t, 1, batch.Notes.Skipped[ReasonShortRecord])
}

func TestLoadCommits_FallsBackToUnixTimestamp(t *testing.T) {
	// 1746445500 = 2025-05-05 11:45:00 UTC.
	data := "not-a-date|1746445500|msg|pieter kuppens|h1\nbad|bad|msg|x|h2\n"

	batch, err := LoadCommits(strings.NewReader(data), "api", "api.txt", commitOpts())
	require.NoError(t, err)

	require.Len(t, batch.Commits, 1)
	assert.Equal(t, timepoint.TimePoint("2025-05-05 11:45:00"), batch.Commits[0].Timestamp)
	assert.True(t, batch.Commits[0].IsEligible)
	assert.Equal(t, 1, batch.Notes.Skipped[ReasonBadTimestamp])
}

func TestLoadCommits_SkipsOversizeLine(t *testing.T) {
	huge := strings.Repeat("x", 2*maxCommitLine)
	data := "2025-05-05 10:00:00|0|first|Pieter Kuppens|h1\n" +
		"2025-05-05 11:00:00|0|" + huge + "|Pieter Kuppens|h2\n" +
		"2025-05-05 12:00:00|0|third|Pieter Kuppens|h3"

	batch, err := LoadCommits(strings.NewReader(data), "api", "api.txt", commitOpts())
	require.NoError(t, err)

	require.Len(t, batch.Commits, 2)
	assert.Equal(t, "h1", batch.Commits[0].Hash)
	assert.Equal(t, "h3", batch.Commits[1].Hash, "records after the oversize line are kept")
	assert.Equal(t, 1, batch.Notes.Skipped[ReasonLineTooLong])
	require.Len(t, batch.Notes.Samples, 1)
	assert.True(t, strings.HasPrefix(batch.Notes.Samples[0], "api.txt:2: line too long: xxx"))
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int
		want    []string
		tooLong []bool
	}{
		{"plain", "ab\ncd\n", 5, []string{"ab", "cd"}, []bool{false, false}},
		{"no trailing newline", "ab\ncd", 5, []string{"ab", "cd"}, []bool{false, false}},
		{"exactly limit", "abcde\nf\n", 5, []string{"abcde", "f"}, []bool{false, false}},
		{"over limit", "abcdef\ng\n", 5, []string{"abcdef", "g"}, []bool{true, false}},
		{"empty line", "\nx\n", 5, []string{"", "x"}, []bool{false, false}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// The smallest reader size forces ReadSlice to return partial chunks.
			br := bufio.NewReaderSize(strings.NewReader(tc.input), 16)
			var got []string
			var long []bool
			for {
				line, tooLong, err := readLine(br, tc.limit)
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, line)
				long = append(long, tooLong)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.tooLong, long)
		})
	}
}

func TestReadLine_ChunkedLongLine(t *testing.T) {
	input := strings.Repeat("y", 100) + "\nnext\n"
	br := bufio.NewReaderSize(strings.NewReader(input), 16)

	line, tooLong, err := readLine(br, 40)
	require.NoError(t, err)
	assert.True(t, tooLong)
	assert.Len(t, line, 41, "keeps the first limit+1 bytes")

	line, tooLong, err = readLine(br, 40)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "next", line)
}

func TestRepoNameFromPath(t *testing.T) {
	assert.Equal(t, "api", RepoNameFromPath("/x/api_commits.txt"))
	assert.Equal(t, "web-app", RepoNameFromPath("web-app.log"))
	assert.Equal(t, "plain", RepoNameFromPath("plain"))
}

func TestLoadCommitDir_MergesDeterministically(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"web_commits.txt": "2025-05-05 10:00:00|0|web change|Pieter Kuppens|w1\n2025-05-05 09:00:00|0|web early|Other|w0\n",
		"api_commits.txt": "2025-05-05 10:00:00|0|api change|Pieter Kuppens|a1\n",
		"notes.md":        "ignored",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	first, err := LoadCommitDir(context.Background(), dir, commitOpts())
	require.NoError(t, err)
	second, err := LoadCommitDir(context.Background(), dir, commitOpts())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Commits, 3)
	assert.Equal(t, "w0", first.Commits[0].Hash)
	assert.Equal(t, "a1", first.Commits[1].Hash)
	assert.Equal(t, "w1", first.Commits[2].Hash)
}

func TestLoadCommitDir_Missing(t *testing.T) {
	batch, err := LoadCommitDir(context.Background(), filepath.Join(t.TempDir(), "nope"), commitOpts())
	require.NoError(t, err)
	assert.Empty(t, batch.Commits)
}

func TestLoadCommitFiles_MissingFileFails(t *testing.T) {
	_, err := LoadCommitFiles(context.Background(), []string{filepath.Join(t.TempDir(), "gone.txt")}, commitOpts())
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// LoadCalendar
// ---------------------------------------------------------------------------

func TestLoadCalendar_JSON(t *testing.T) {
	data := `[
  {"start": "2025-05-05T11:30:00+02:00", "end": "2025-05-05T12:15:00+02:00", "summary": "Standup"},
  {"start": "2025-05-05 14:00:00", "end": "2025-05-05 13:00:00", "summary": "Backwards"},
  {"start": "soon", "end": "2025-05-05 13:00:00", "summary": "Vague"}
]`
	got, notes, err := LoadCalendar(strings.NewReader(data), CalendarJSON, "cal.json", nil, quietLogger())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, timeline.Commitment{Start: "2025-05-05 11:30:00", End: "2025-05-05 12:15:00", Summary: "Standup"}, got[0])
	assert.Equal(t, 1, notes.Skipped[ReasonBadInterval])
	assert.Equal(t, 1, notes.Skipped[ReasonBadTimestamp])
}

func TestLoadCalendar_YAML(t *testing.T) {
	data := `
- start: "2025-05-05 11:30:00"
  end: "2025-05-05 12:15:00"
  summary: Standup
`
	got, _, err := LoadCalendar(strings.NewReader(data), CalendarYAML, "cal.yaml", nil, quietLogger())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Standup", got[0].Summary)
}

func TestLoadCalendar_NotAList(t *testing.T) {
	_, _, err := LoadCalendar(strings.NewReader(`{"start": "x"}`), CalendarJSON, "cal.json", nil, quietLogger())
	assert.Error(t, err)
}

func TestCalendarFormatFor(t *testing.T) {
	assert.Equal(t, CalendarYAML, CalendarFormatFor("cal.YML"))
	assert.Equal(t, CalendarYAML, CalendarFormatFor("cal.yaml"))
	assert.Equal(t, CalendarJSON, CalendarFormatFor("cal.json"))
}

func TestNotes_Merge(t *testing.T) {
	a := NewNotes()
	a.Skip(quietLogger(), "a", 1, ReasonBadTimestamp, "x")
	b := NewNotes()
	b.Skip(quietLogger(), "b", 2, ReasonBadTimestamp, "y")
	b.Skip(quietLogger(), "b", 3, ReasonBeforeCutoff, "z")

	a.Merge(b)

	assert.Equal(t, 2, a.Skipped[ReasonBadTimestamp])
	assert.Equal(t, 1, a.Skipped[ReasonBeforeCutoff])
	assert.Equal(t, 3, a.Total())
	assert.Len(t, a.Samples, 2)
	assert.Equal(t, []string{ReasonBeforeCutoff, ReasonBadTimestamp}, a.Reasons(), "sorted by reason text")
}
