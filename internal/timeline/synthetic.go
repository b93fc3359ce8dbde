package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// SlotTemplate is a fixed daily window used for synthetic sessions.
type SlotTemplate struct {
	Name          string  `json:"name"`
	Start         string  `json:"start"` // "HH:MM"
	End           string  `json:"end"`   // "HH:MM"
	DurationHours float64 `json:"duration_hours"`
	WorkHours     float64 `json:"work_hours"`

	// UntilHour is the exclusive hour-of-day up to which a commit falls into
	// this slot. The last template catches every later hour.
	UntilHour int `json:"until_hour"`
}

// DefaultSlots are the morning, afternoon and evening templates.
var DefaultSlots = []SlotTemplate{
	{Name: "morning", Start: "08:00", End: "12:00", DurationHours: 4.0, WorkHours: 3.5, UntilHour: 12},
	{Name: "afternoon", Start: "13:00", End: "17:00", DurationHours: 4.0, WorkHours: 3.5, UntilHour: 18},
	{Name: "evening", Start: "19:00", End: "22:00", DurationHours: 3.0, WorkHours: 2.5, UntilHour: 24},
}

// SyntheticResult is the output of GenerateSynthetic.
type SyntheticResult struct {
	Sessions   []WorkSession `json:"sessions"`
	Unassigned Unassigned    `json:"unassigned"`

	// SkippedOverlap counts commit groups left unassigned because their slot
	// window overlaps an existing session.
	SkippedOverlap int `json:"skipped_overlap"`

	// SkippedIneligible counts dates left alone because none of their
	// unassigned commits is eligible.
	SkippedIneligible int `json:"skipped_ineligible"`
}

// slotFor returns the index of the template a commit at hour belongs to.
func slotFor(hour int, slots []SlotTemplate) int {
	for i, s := range slots {
		if hour < s.UntilHour {
			return i
		}
	}
	return len(slots) - 1
}

// GenerateSynthetic estimates sessions for unassigned commits. A date
// qualifies when at least one of its unassigned commits is eligible. The
// commits of a qualifying date are split into contiguous runs that share a
// slot, and every run whose slot window overlaps no existing session becomes
// one SYNTHETIC session carrying those commits. All other commits stay
// unassigned. Session ids depend only on date, slot and ordinal, so the same
// input always yields the same ids.
func GenerateSynthetic(unassigned Unassigned, existing []WorkSession, slots []SlotTemplate) SyntheticResult {
	if len(slots) == 0 {
		slots = DefaultSlots
	}
	res := SyntheticResult{Unassigned: Unassigned{}}

	dates := make([]string, 0, len(unassigned))
	for d := range unassigned {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	byDate := sessionsByDate(existing)
	ordinals := make(map[string]int)

	for _, date := range dates {
		commits := append([]Commit(nil), unassigned[date]...)
		SortCommits(commits)
		if !anyEligible(commits) {
			res.SkippedIneligible++
			res.Unassigned[date] = commits
			continue
		}

		for _, group := range groupBySlot(commits, slots) {
			tmpl := slots[group.slot]

			start, errStart := timepoint.AtClock(date, tmpl.Start)
			end, errEnd := timepoint.AtClock(date, tmpl.End)
			if errStart != nil || errEnd != nil || overlapsAny(start, end, byDate[date]) {
				res.SkippedOverlap++
				res.Unassigned[date] = append(res.Unassigned[date], group.commits...)
				continue
			}

			// Validated slot tables have increasing UntilHour, so a slot forms
			// at most one run per date; the ordinal only grows past 1 for
			// unvalidated tables.
			key := date + "/" + tmpl.Name
			ordinals[key]++
			id := fmt.Sprintf("syn-%s-%s-%d", strings.ReplaceAll(date, "-", ""), tmpl.Name, ordinals[key])

			s, err := NewSession(id, start, end, SourceSynthetic)
			if err != nil {
				res.SkippedOverlap++
				res.Unassigned[date] = append(res.Unassigned[date], group.commits...)
				continue
			}
			s.DurationHours = tmpl.DurationHours
			s.WorkHours = tmpl.WorkHours
			s.Confidence = ConfidenceSynthetic
			s.IsEligible = true
			s.Slot = tmpl.Name
			s.AssignedCommits = group.commits

			res.Sessions = append(res.Sessions, *s)
			byDate[date] = append(byDate[date], *s)
		}
	}

	return res
}

type slotGroup struct {
	slot    int
	commits []Commit
}

// groupBySlot splits sorted commits into maximal runs of the same slot. The
// run's slot is that of its earliest commit.
func groupBySlot(commits []Commit, slots []SlotTemplate) []slotGroup {
	var groups []slotGroup
	for _, c := range commits {
		slot := slotFor(c.Timestamp.Hour(), slots)
		if n := len(groups); n > 0 && groups[n-1].slot == slot {
			groups[n-1].commits = append(groups[n-1].commits, c)
			continue
		}
		groups = append(groups, slotGroup{slot: slot, commits: []Commit{c}})
	}
	return groups
}

func anyEligible(commits []Commit) bool {
	for _, c := range commits {
		if c.IsEligible {
			return true
		}
	}
	return false
}

func sessionsByDate(sessions []WorkSession) map[string][]WorkSession {
	out := make(map[string][]WorkSession)
	for _, s := range sessions {
		// A session spanning midnight blocks slots on both dates.
		for d := s.Start.Date(); d <= s.End.Date(); d = nextDate(d) {
			out[d] = append(out[d], s)
		}
	}
	return out
}

func nextDate(d string) string {
	tp := timepoint.TimePoint(d + " 00:00:00")
	return tp.Time().AddDate(0, 0, 1).Format(timepoint.DateLayout)
}

func overlapsAny(start, end timepoint.TimePoint, sessions []WorkSession) bool {
	for _, s := range sessions {
		if start < s.End && s.Start < end {
			return true
		}
	}
	return false
}
