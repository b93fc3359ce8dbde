// Package timepoint normalizes heterogeneous timestamp strings into one
// canonical, lexicographically sortable local wall-clock form.
package timepoint

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical TimePoint layout.
const Layout = "2006-01-02 15:04:05"

// DateLayout is the layout of the calendar-date part of a TimePoint.
const DateLayout = "2006-01-02"

// ErrUnparseable is wrapped by every ParseError.
var ErrUnparseable = errors.New("unparseable timestamp")

// ParseError reports a timestamp that matched none of the known layouts.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: no known format matches", e.Raw)
}

// Unwrap lets callers match with errors.Is(err, ErrUnparseable).
func (e *ParseError) Unwrap() error {
	return ErrUnparseable
}

// TimePoint is an instant stored as "YYYY-MM-DD HH:mm:ss" local wall-clock
// time with no offset. Plain string comparison is chronological comparison.
type TimePoint string

// layouts are tried in order. Offset-bearing layouts keep the wall clock
// written in the input; the offset itself is discarded.
var layouts = []string{
	"1/2/2006 3:04:05 PM",
	"2006/01/02 15:04:05",
	Layout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2-1-2006 15:04:05",
}

// Parse converts raw into a TimePoint. It is pure and safe for concurrent use.
func Parse(raw string) (TimePoint, error) {
	s := clean(raw)
	if s == "" {
		return "", &ParseError{Raw: raw}
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Formatting in t's own location renders the wall clock that was
		// written, which is the value we keep.
		return TimePoint(t.Format(Layout)), nil
	}
	return "", &ParseError{Raw: raw}
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(raw string) TimePoint {
	tp, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return tp
}

// clean strips whitespace, a UTF-8 BOM and one pair of surrounding quotes.
func clean(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// FromTime renders the wall clock of t in its own location.
func FromTime(t time.Time) TimePoint {
	return TimePoint(t.Format(Layout))
}

// AtClock builds a TimePoint from a date ("YYYY-MM-DD") and a clock
// ("HH:MM" or "HH:MM:SS").
func AtClock(date, clock string) (TimePoint, error) {
	if len(clock) == 5 {
		clock += ":00"
	}
	return Parse(date + " " + clock)
}

// Time returns the wall clock as a time.Time in UTC, which serves as a
// neutral zone without DST transitions for arithmetic.
func (tp TimePoint) Time() time.Time {
	t, err := time.Parse(Layout, string(tp))
	if err != nil {
		return time.Time{}
	}
	return t
}

// String implements fmt.Stringer.
func (tp TimePoint) String() string {
	return string(tp)
}

// IsZero reports whether tp is empty.
func (tp TimePoint) IsZero() bool {
	return tp == ""
}

// Before reports whether tp is strictly before other.
func (tp TimePoint) Before(other TimePoint) bool {
	return tp < other
}

// After reports whether tp is strictly after other.
func (tp TimePoint) After(other TimePoint) bool {
	return tp > other
}

// Date returns the "YYYY-MM-DD" part.
func (tp TimePoint) Date() string {
	if len(tp) < 10 {
		return string(tp)
	}
	return string(tp[:10])
}

// Clock returns the "HH:MM:SS" part.
func (tp TimePoint) Clock() string {
	if len(tp) < 19 {
		return ""
	}
	return string(tp[11:19])
}

// Month returns the "YYYY-MM" part.
func (tp TimePoint) Month() string {
	if len(tp) < 7 {
		return string(tp)
	}
	return string(tp[:7])
}

// ISOWeek returns the ISO-8601 week label, e.g. "2025-W19".
func (tp TimePoint) ISOWeek() string {
	year, week := tp.Time().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// Hour returns the hour of day, 0-23.
func (tp TimePoint) Hour() int {
	return tp.Time().Hour()
}

// Add returns tp shifted by d.
func (tp TimePoint) Add(d time.Duration) TimePoint {
	return FromTime(tp.Time().Add(d))
}

// HoursUntil returns the wall-clock hours from tp to other.
// It is negative when other is before tp.
func (tp TimePoint) HoursUntil(other TimePoint) float64 {
	return other.Time().Sub(tp.Time()).Hours()
}

// Min returns the earlier of a and b.
func Min(a, b TimePoint) TimePoint {
	if a < b {
		return a
	}
	return b
}

// Max returns the later of a and b.
func Max(a, b TimePoint) TimePoint {
	if a > b {
		return a
	}
	return b
}
