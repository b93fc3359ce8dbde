// Package timeline holds the reconstructed work-session model and the pure
// stages that build it: session detection, commit assignment, synthetic
// session generation, categorization, conflict resolution and totals.
package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// EventCategory classifies a raw OS event.
type EventCategory string

const (
	EventStartup            EventCategory = "STARTUP"
	EventShutdown           EventCategory = "SHUTDOWN"
	EventLogon              EventCategory = "LOGON"
	EventLogoff             EventCategory = "LOGOFF"
	EventSleep              EventCategory = "SLEEP"
	EventUnexpectedShutdown EventCategory = "UNEXPECTED_SHUTDOWN"
)

// SystemEvent is one OS-level power or logon record.
type SystemEvent struct {
	Timestamp timepoint.TimePoint `json:"timestamp"`
	EventID   int                 `json:"event_id"`
	Category  EventCategory       `json:"category"`
}

// Commit is one version-control commit. IsEligible is fixed at load time.
type Commit struct {
	Timestamp  timepoint.TimePoint `json:"timestamp"`
	RepoName   string              `json:"repo_name"`
	Author     string              `json:"author"`
	Message    string              `json:"message"`
	Hash       string              `json:"hash"`
	IsEligible bool                `json:"is_eligible"`
}

// Source records how a session was reconstructed.
type Source string

const (
	// SourceReal sessions are bounded by system events.
	SourceReal Source = "REAL"

	// SourceSynthetic sessions are estimated from commit activity alone.
	SourceSynthetic Source = "SYNTHETIC"
)

// Category is a WBSO program category.
type Category string

const (
	CategoryAIFramework   Category = "AI_FRAMEWORK"
	CategoryAccessControl Category = "ACCESS_CONTROL"
	CategoryPrivacyCloud  Category = "PRIVACY_CLOUD"
	CategoryAuditLogging  Category = "AUDIT_LOGGING"
	CategoryDataIntegrity Category = "DATA_INTEGRITY"
	CategoryGeneralRD     Category = "GENERAL_RD"
)

// Confidence tiers.
const (
	ConfidenceClean     = 1.0
	MinRealConfidence   = 0.35
	ConfidenceUnclosed  = MinRealConfidence
	ConfidenceSynthetic = 0.25
)

// WorkSession is a reconstructed interval of continuous work.
type WorkSession struct {
	SessionID       string              `json:"session_id"`
	Start           timepoint.TimePoint `json:"start"`
	End             timepoint.TimePoint `json:"end"`
	DurationHours   float64             `json:"duration_hours"`
	WorkHours       float64             `json:"work_hours"`
	Confidence      float64             `json:"confidence"`
	IsEligible      bool                `json:"is_eligible"`
	Category        Category            `json:"category,omitempty"`
	Justification   string              `json:"justification,omitempty"`
	Source          Source              `json:"source"`
	Slot            string              `json:"slot,omitempty"`
	Unclosed        bool                `json:"unclosed,omitempty"`
	CloseEvent      EventCategory       `json:"close_event,omitempty"`
	AssignedCommits []Commit            `json:"assigned_commits"`
	Conflicts       []ConflictRecord    `json:"conflicts,omitempty"`
}

// ErrInvalidInterval is wrapped by every IntervalError.
var ErrInvalidInterval = errors.New("invalid session interval")

// IntervalError reports a session whose end is not after its start.
type IntervalError struct {
	SessionID string
	Start     timepoint.TimePoint
	End       timepoint.TimePoint
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("session %s: end %s is not after start %s", e.SessionID, e.End, e.Start)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidInterval).
func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}

// NewSession validates start < end and returns a session with its duration
// set. Work hours, confidence and eligibility are left to the caller.
func NewSession(id string, start, end timepoint.TimePoint, source Source) (*WorkSession, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return nil, &IntervalError{SessionID: id, Start: start, End: end}
	}
	return &WorkSession{
		SessionID:       id,
		Start:           start,
		End:             end,
		DurationHours:   start.HoursUntil(end),
		Source:          source,
		AssignedCommits: []Commit{},
	}, nil
}

// Contains reports whether tp lies within [Start, End].
func (s *WorkSession) Contains(tp timepoint.TimePoint) bool {
	return tp >= s.Start && tp <= s.End
}

// Severity classifies a calendar conflict.
type Severity string

const (
	SeverityShort Severity = "SHORT"
	SeverityLong  Severity = "LONG"
)

// Conflict resolutions.
const (
	ResolutionAdjusted     = "adjusted"
	ResolutionManualReview = "manual_review"
)

// ConflictRecord describes one overlap between a session and a calendar
// commitment. OriginalStart/OriginalEnd hold the bounds before any
// adjustment made for this record.
type ConflictRecord struct {
	SessionID           string              `json:"session_id"`
	OverlappingEventRef string              `json:"overlapping_event_ref"`
	OverlapHours        float64             `json:"overlap_hours"`
	Severity            Severity            `json:"severity"`
	Resolution          string              `json:"resolution"`
	OriginalStart       timepoint.TimePoint `json:"original_start"`
	OriginalEnd         timepoint.TimePoint `json:"original_end"`
	AdjustedStart       timepoint.TimePoint `json:"adjusted_start,omitempty"`
	AdjustedEnd         timepoint.TimePoint `json:"adjusted_end,omitempty"`
}

// Commitment is a pre-existing calendar entry.
type Commitment struct {
	Start   timepoint.TimePoint `json:"start" yaml:"start"`
	End     timepoint.TimePoint `json:"end" yaml:"end"`
	Summary string              `json:"summary" yaml:"summary"`
}

// Ref is the reference stored in conflict records.
func (c Commitment) Ref() string {
	return fmt.Sprintf("%s [%s - %s]", c.Summary, c.Start, c.End)
}

// Unassigned maps a calendar date to the commits on that date that no
// session contains.
type Unassigned map[string][]Commit

// Count returns the number of commits across all dates.
func (u Unassigned) Count() int {
	n := 0
	for _, commits := range u {
		n += len(commits)
	}
	return n
}

// round2 rounds to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
