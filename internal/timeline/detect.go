package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// Confidence penalties applied by the detector.
const (
	PenaltyUnexpectedShutdown = 0.25
	PenaltyOverCeiling        = 0.25
	PenaltyNearFloor          = 0.1
)

// DetectorOptions configures session detection.
type DetectorOptions struct {
	// WorkStart and WorkEnd bound the clock times ("HH:MM") at which a
	// STARTUP or LOGON may open a session: WorkStart <= clock < WorkEnd.
	WorkStart string
	WorkEnd   string

	// MinSession discards shorter sessions.
	MinSession time.Duration

	// MaxSession reduces confidence of longer sessions.
	MaxSession time.Duration

	Breaks BreakPolicy
}

// BreakPolicy deducts Allowance from sessions longer than Threshold.
type BreakPolicy struct {
	Threshold time.Duration
	Allowance time.Duration
}

// WorkHours derives work hours from a duration in hours.
func (b BreakPolicy) WorkHours(durationHours float64) float64 {
	if durationHours > b.Threshold.Hours() {
		return durationHours - b.Allowance.Hours()
	}
	return durationHours
}

// DetectResult is the output of DetectSessions.
type DetectResult struct {
	Sessions []WorkSession `json:"sessions"`

	// Discarded counts sessions shorter than the minimum.
	Discarded int `json:"discarded"`

	// OutsideWindow counts opening events ignored for their clock time.
	OutsideWindow int `json:"outside_window"`

	// Errors holds sessions rejected with an IntervalError.
	Errors []error `json:"-"`
}

type detectorState int

const (
	stateIdle detectorState = iota
	stateOpen
)

// DetectSessions turns a chronologically sorted event stream into work
// sessions in one pass. REAL sessions never overlap because a session is
// only opened from the idle state.
func DetectSessions(events []SystemEvent, opts DetectorOptions) DetectResult {
	var res DetectResult
	state := stateIdle
	var openAt timepoint.TimePoint

	for _, ev := range events {
		switch state {
		case stateIdle:
			if ev.Category != EventStartup && ev.Category != EventLogon {
				continue
			}
			if !withinWindow(ev.Timestamp, opts.WorkStart, opts.WorkEnd) {
				res.OutsideWindow++
				continue
			}
			openAt = ev.Timestamp
			state = stateOpen

		case stateOpen:
			if !closesSession(ev.Category) {
				continue
			}
			res.emit(openAt, ev.Timestamp, ev.Category, false, opts)
			state = stateIdle
		}
	}

	if state == stateOpen && len(events) > 0 {
		last := events[len(events)-1].Timestamp
		res.emit(openAt, last, "", true, opts)
	}

	return res
}

func closesSession(c EventCategory) bool {
	return c == EventShutdown || c == EventSleep || c == EventUnexpectedShutdown
}

func (res *DetectResult) emit(start, end timepoint.TimePoint, closedBy EventCategory, unclosed bool, opts DetectorOptions) {
	id := realSessionID(start)
	s, err := NewSession(id, start, end, SourceReal)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return
	}

	duration := end.Time().Sub(start.Time())
	if !unclosed && duration < opts.MinSession {
		res.Discarded++
		return
	}

	s.WorkHours = opts.Breaks.WorkHours(s.DurationHours)
	s.CloseEvent = closedBy
	s.Unclosed = unclosed
	s.Confidence = sessionConfidence(duration, closedBy, unclosed, opts)
	res.Sessions = append(res.Sessions, *s)
}

// sessionConfidence scores how trustworthy a session's bounds are.
func sessionConfidence(duration time.Duration, closedBy EventCategory, unclosed bool, opts DetectorOptions) float64 {
	if unclosed {
		return ConfidenceUnclosed
	}
	c := ConfidenceClean
	if closedBy == EventUnexpectedShutdown {
		c -= PenaltyUnexpectedShutdown
	}
	if opts.MaxSession > 0 && duration > opts.MaxSession {
		c -= PenaltyOverCeiling
	}
	if duration < 2*opts.MinSession {
		c -= PenaltyNearFloor
	}
	if c < MinRealConfidence {
		c = MinRealConfidence
	}
	return round2(c)
}

// withinWindow reports whether tp's clock time is in [start, end).
// "HH:MM" and "HH:MM:SS" compare correctly as strings once padded.
func withinWindow(tp timepoint.TimePoint, start, end string) bool {
	clock := tp.Clock()
	return clock >= padClock(start) && clock < padClock(end)
}

func padClock(c string) string {
	if len(c) == 5 {
		return c + ":00"
	}
	return c
}

func realSessionID(start timepoint.TimePoint) string {
	compact := strings.NewReplacer("-", "", ":", "", " ", "-").Replace(string(start))
	return fmt.Sprintf("real-%s", compact)
}
