package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// EventCategories maps Windows event ids to event categories.
var EventCategories = map[int]timeline.EventCategory{
	6005: timeline.EventStartup,
	1074: timeline.EventShutdown,
	6006: timeline.EventShutdown,
	41:   timeline.EventUnexpectedShutdown,
	6008: timeline.EventUnexpectedShutdown,
	42:   timeline.EventSleep,
	4624: timeline.EventLogon,
	7001: timeline.EventLogon,
	4634: timeline.EventLogoff,
	4647: timeline.EventLogoff,
	7002: timeline.EventLogoff,
}

var (
	dateTimeColumns = []string{"datetime", "timecreated", "date"}
	eventIDColumns  = []string{"eventid", "id"}
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// EventOptions configures LoadEvents.
type EventOptions struct {
	Source     string
	Normalizer *timepoint.Normalizer
	Logger     *slog.Logger
}

// LoadEvents reads a CSV export of system events with a header row. Rows are
// returned sorted by timestamp; rows that cannot be parsed or mapped are
// skipped and noted. Only a missing header or required column is an error.
func LoadEvents(r io.Reader, opts EventOptions) ([]timeline.SystemEvent, Notes, error) {
	logger := loggerOrDefault(opts.Logger)
	notes := NewNotes()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, notes, nil
		}
		return nil, notes, err
	}
	tsCol := findColumn(header, dateTimeColumns)
	idCol := findColumn(header, eventIDColumns)
	if tsCol < 0 || idCol < 0 {
		return nil, notes, ErrMissingColumn
	}

	var events []timeline.SystemEvent
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				notes.Skip(logger, opts.Source, perr.Line, ReasonReadError, perr.Err.Error())
				continue
			}
			return events, notes, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) <= tsCol || len(rec) <= idCol {
			notes.Skip(logger, opts.Source, line, ReasonShortRecord, strings.Join(rec, ","))
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(rec[idCol]))
		if err != nil {
			notes.Skip(logger, opts.Source, line, ReasonBadEventID, rec[idCol])
			continue
		}
		cat, ok := EventCategories[id]
		if !ok {
			notes.Skip(logger, opts.Source, line, ReasonUnknownEventID, rec[idCol])
			continue
		}
		ts, err := opts.Normalizer.Parse(rec[tsCol])
		if err != nil {
			notes.Skip(logger, opts.Source, line, ReasonBadTimestamp, rec[tsCol])
			continue
		}

		events = append(events, timeline.SystemEvent{Timestamp: ts, EventID: id, Category: cat})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events, notes, nil
}

// findColumn returns the index of the first header matching one of names,
// compared case-insensitively, or -1.
func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
			if h == name {
				return i
			}
		}
	}
	return -1
}
