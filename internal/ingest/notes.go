// Package ingest loads raw system events, commit logs and calendar
// commitments into the typed records the timeline package works on.
// Malformed records are skipped and counted, never fatal.
package ingest

import (
	"fmt"
	"log/slog"
	"sort"
)

// maxSamples bounds the number of detail lines kept per Notes.
const maxSamples = 20

// Skip reasons.
const (
	ReasonBadTimestamp   = "unparseable timestamp"
	ReasonBadEventID     = "unparseable event id"
	ReasonUnknownEventID = "unmapped event id"
	ReasonShortRecord    = "too few fields"
	ReasonBeforeCutoff   = "before cutoff date"
	ReasonBadInterval    = "end not after start"
	ReasonReadError      = "read error"
	ReasonLineTooLong    = "line too long"
)

// Notes counts skipped records by reason and keeps a few samples so data
// quality problems can be fixed by hand.
type Notes struct {
	Skipped map[string]int `json:"skipped"`
	Samples []string       `json:"samples,omitempty"`
}

// NewNotes returns empty Notes.
func NewNotes() Notes {
	return Notes{Skipped: map[string]int{}}
}

// Skip records one skipped record and logs it. Cutoff filtering is expected
// and is only logged at debug level.
func (n *Notes) Skip(logger *slog.Logger, source string, line int, reason, detail string) {
	if n.Skipped == nil {
		n.Skipped = map[string]int{}
	}
	n.Skipped[reason]++

	attrs := []any{"source", source, "line", line, "reason", reason}
	if detail != "" {
		attrs = append(attrs, "detail", detail)
	}
	if reason == ReasonBeforeCutoff {
		logger.Debug("record filtered", attrs...)
		return
	}
	logger.Warn("skipping record", attrs...)
	if len(n.Samples) < maxSamples {
		n.Samples = append(n.Samples, fmt.Sprintf("%s:%d: %s: %s", source, line, reason, detail))
	}
}

// Total returns the number of skipped records.
func (n Notes) Total() int {
	total := 0
	for _, c := range n.Skipped {
		total += c
	}
	return total
}

// Merge adds other into n. Samples keep n's first, then other's.
func (n *Notes) Merge(other Notes) {
	if n.Skipped == nil {
		n.Skipped = map[string]int{}
	}
	for reason, c := range other.Skipped {
		n.Skipped[reason] += c
	}
	for _, s := range other.Samples {
		if len(n.Samples) >= maxSamples {
			break
		}
		n.Samples = append(n.Samples, s)
	}
}

// Reasons returns the skip reasons in sorted order.
func (n Notes) Reasons() []string {
	out := make([]string, 0, len(n.Skipped))
	for r := range n.Skipped {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
