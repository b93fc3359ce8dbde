package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// CalendarFormat selects the calendar file encoding.
type CalendarFormat string

const (
	CalendarJSON CalendarFormat = "json"
	CalendarYAML CalendarFormat = "yaml"
)

// rawCommitment is the on-disk shape; times may be in any format Parse
// accepts.
type rawCommitment struct {
	Start   string `json:"start" yaml:"start"`
	End     string `json:"end" yaml:"end"`
	Summary string `json:"summary" yaml:"summary"`
}

// CalendarFormatFor picks the format from a file extension.
func CalendarFormatFor(path string) CalendarFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return CalendarYAML
	default:
		return CalendarJSON
	}
}

// LoadCalendar reads a list of {start, end, summary} commitments. Entries
// with unparseable times or end <= start are skipped and noted; a document
// that is not a list is an error.
func LoadCalendar(r io.Reader, format CalendarFormat, source string, n *timepoint.Normalizer, logger *slog.Logger) ([]timeline.Commitment, Notes, error) {
	logger = loggerOrDefault(logger)
	notes := NewNotes()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, notes, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, notes, nil
	}

	var raw []rawCommitment
	switch format {
	case CalendarYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, notes, fmt.Errorf("decoding calendar %s: %w", source, err)
	}

	out := make([]timeline.Commitment, 0, len(raw))
	for i, rc := range raw {
		entry := i + 1
		start, err := n.Parse(rc.Start)
		if err != nil {
			notes.Skip(logger, source, entry, ReasonBadTimestamp, rc.Start)
			continue
		}
		end, err := n.Parse(rc.End)
		if err != nil {
			notes.Skip(logger, source, entry, ReasonBadTimestamp, rc.End)
			continue
		}
		if !start.Before(end) {
			notes.Skip(logger, source, entry, ReasonBadInterval, rc.Summary)
			continue
		}
		out = append(out, timeline.Commitment{Start: start, End: end, Summary: strings.TrimSpace(rc.Summary)})
	}
	return out, notes, nil
}

// LoadCalendarFile opens path and loads it with the format implied by its
// extension. An empty path yields no commitments.
func LoadCalendarFile(path string, n *timepoint.Normalizer, logger *slog.Logger) ([]timeline.Commitment, Notes, error) {
	if path == "" {
		return nil, NewNotes(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, NewNotes(), err
	}
	defer func() { _ = f.Close() }()
	return LoadCalendar(f, CalendarFormatFor(path), path, n, logger)
}

// LoadEventsFile opens path and loads system events from it.
func LoadEventsFile(path string, n *timepoint.Normalizer, logger *slog.Logger) ([]timeline.SystemEvent, Notes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewNotes(), err
	}
	defer func() { _ = f.Close() }()
	return LoadEvents(f, EventOptions{Source: path, Normalizer: n, Logger: logger})
}
