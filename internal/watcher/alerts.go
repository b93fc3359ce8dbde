package watcher

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

// Compare detects notable changes between two states. Alerts are ordered
// critical, warning, info; within a level by session id.
func Compare(prev, curr *WatchState) []Alert {
	var alerts []Alert
	alerts = append(alerts, compareCritical(prev, curr)...)
	alerts = append(alerts, compareWarning(prev, curr)...)
	alerts = append(alerts, compareInfo(prev, curr)...)
	return alerts
}

func compareCritical(prev, curr *WatchState) []Alert {
	var alerts []Alert
	for _, key := range sortedKeys(curr.reviewKeys) {
		if _, seen := prev.reviewKeys[key]; seen {
			continue
		}
		r := curr.reviewKeys[key]
		alerts = append(alerts, Alert{
			Level:   LevelCritical,
			Title:   fmt.Sprintf("Conflict needs review: %s", r.SessionID),
			Message: fmt.Sprintf("%s overlap (%.2fh) with %s", r.Severity, r.OverlapHours, r.OverlappingEventRef),
			Time:    curr.Timestamp,
		})
	}
	return alerts
}

func compareWarning(prev, curr *WatchState) []Alert {
	var alerts []Alert

	if curr.EligibleHours < prev.EligibleHours {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Eligible hours dropped",
			Message: fmt.Sprintf("%.2fh, was %.2fh", curr.EligibleHours, prev.EligibleHours),
			Time:    curr.Timestamp,
		})
	}

	if curr.SkippedRecords > prev.SkippedRecords {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "More input records skipped",
			Message: fmt.Sprintf("%d skipped, was %d", curr.SkippedRecords, prev.SkippedRecords),
			Time:    curr.Timestamp,
		})
	}

	if curr.UnassignedCommits > prev.UnassignedCommits {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Unassigned commits increased",
			Message: fmt.Sprintf("%d commits outside every session, was %d", curr.UnassignedCommits, prev.UnassignedCommits),
			Time:    curr.Timestamp,
		})
	}

	for _, id := range sortedKeys(prev.sessionIDs) {
		if _, still := curr.sessionIDs[id]; !still {
			alerts = append(alerts, Alert{
				Level:   LevelWarning,
				Title:   fmt.Sprintf("Session disappeared: %s", id),
				Message: fmt.Sprintf("%.2fh no longer in the timeline", prev.sessionIDs[id].WorkHours),
				Time:    curr.Timestamp,
			})
		}
	}

	return alerts
}

func compareInfo(prev, curr *WatchState) []Alert {
	var alerts []Alert

	for _, id := range sortedKeys(curr.sessionIDs) {
		if _, seen := prev.sessionIDs[id]; seen {
			continue
		}
		s := curr.sessionIDs[id]
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Title:   fmt.Sprintf("New session: %s", id),
			Message: fmt.Sprintf("%s, %.2fh, %s, %d commits", s.Source, s.WorkHours, s.Category, len(s.AssignedCommits)),
			Time:    curr.Timestamp,
		})
	}

	if curr.EligibleHours > prev.EligibleHours {
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Title:   "Eligible hours increased",
			Message: fmt.Sprintf("%.2fh of %.0fh, +%.2fh", curr.EligibleHours, curr.TargetHours, curr.EligibleHours-prev.EligibleHours),
			Time:    curr.Timestamp,
		})
	}

	if curr.Status == timeline.StatusAchieved && prev.Status != timeline.StatusAchieved {
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Title:   "Target reached",
			Message: fmt.Sprintf("%.2fh eligible against a target of %.0fh", curr.EligibleHours, curr.TargetHours),
			Time:    curr.Timestamp,
		})
	}

	return alerts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
