package timeline

import (
	"sort"
	"time"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// DefaultShortConflict is the overlap below which a conflict is SHORT.
const DefaultShortConflict = 2 * time.Hour

// ConflictOptions configures ResolveConflicts.
type ConflictOptions struct {
	ShortThreshold time.Duration
	Breaks         BreakPolicy
}

// ConflictResult is the output of ResolveConflicts.
type ConflictResult struct {
	Sessions []WorkSession   `json:"sessions"`
	Records  []ConflictRecord `json:"records"`

	// Review lists records that need a human decision.
	Review []ConflictRecord `json:"review"`
}

// OverlapHours returns max(0, min(aEnd, bEnd) - max(aStart, bStart)) in hours.
func OverlapHours(aStart, aEnd, bStart, bEnd timepoint.TimePoint) float64 {
	lo := timepoint.Max(aStart, bStart)
	hi := timepoint.Min(aEnd, bEnd)
	if !lo.Before(hi) {
		return 0
	}
	return lo.HoursUntil(hi)
}

// ResolveConflicts checks every session against every commitment. SHORT
// overlaps are resolved by moving the start later or the end earlier,
// whichever moves the boundary less (ties move the end). When the move
// would empty the session, or the overlap is LONG, the session is left as
// is and the record is marked for manual review. Commitments are applied in
// start order, each against the bounds left by the previous one.
func ResolveConflicts(sessions []WorkSession, commitments []Commitment, opts ConflictOptions) ConflictResult {
	threshold := opts.ShortThreshold
	if threshold <= 0 {
		threshold = DefaultShortConflict
	}

	ordered := append([]Commitment(nil), commitments...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].End < ordered[j].End
	})

	res := ConflictResult{Sessions: make([]WorkSession, len(sessions))}

	for i, s := range sessions {
		s.Conflicts = append([]ConflictRecord(nil), s.Conflicts...)
		for _, c := range ordered {
			overlap := OverlapHours(s.Start, s.End, c.Start, c.End)
			if overlap <= 0 {
				continue
			}

			rec := ConflictRecord{
				SessionID:           s.SessionID,
				OverlappingEventRef: c.Ref(),
				OverlapHours:        round2(overlap),
				Severity:            SeverityLong,
				Resolution:          ResolutionManualReview,
				OriginalStart:       s.Start,
				OriginalEnd:         s.End,
			}

			if overlap < threshold.Hours() {
				rec.Severity = SeverityShort
				if start, end, ok := shrink(s.Start, s.End, c); ok {
					removed := s.DurationHours - start.HoursUntil(end)
					s.Start, s.End = start, end
					s.DurationHours = start.HoursUntil(end)
					if s.Source == SourceReal {
						s.WorkHours = opts.Breaks.WorkHours(s.DurationHours)
					} else {
						// Template hours lose what the move removed.
						s.WorkHours = max(0, s.WorkHours-removed)
					}
					rec.Resolution = ResolutionAdjusted
					rec.AdjustedStart, rec.AdjustedEnd = start, end
				}
			}

			s.Conflicts = append(s.Conflicts, rec)
			res.Records = append(res.Records, rec)
			if rec.Resolution == ResolutionManualReview {
				res.Review = append(res.Review, rec)
			}
		}
		res.Sessions[i] = s
	}

	return res
}

// shrink moves one boundary of [start, end] out of the commitment.
func shrink(start, end timepoint.TimePoint, c Commitment) (timepoint.TimePoint, timepoint.TimePoint, bool) {
	startLater := start.HoursUntil(c.End) // move start to c.End
	endEarlier := c.Start.HoursUntil(end) // move end to c.Start

	if endEarlier <= startLater {
		if start.Before(c.Start) {
			return start, c.Start, true
		}
		if c.End.Before(end) {
			return c.End, end, true
		}
		return start, end, false
	}
	if c.End.Before(end) {
		return c.End, end, true
	}
	if start.Before(c.Start) {
		return start, c.Start, true
	}
	return start, end, false
}
