package store

import "math"

// Direction labels for MetricDelta.
const (
	DirectionImproved  = "improved"
	DirectionRegressed = "regressed"
	DirectionUnchanged = "unchanged"
)

type headline struct {
	name         string
	value        func(*Run) float64
	higherBetter bool
}

var headlines = []headline{
	{"eligible_hours", func(r *Run) float64 { return r.EligibleHours }, true},
	{"total_hours", func(r *Run) float64 { return r.TotalHours }, true},
	{"eligible_sessions", func(r *Run) float64 { return float64(r.EligibleSessions) }, true},
	{"progress_pct", func(r *Run) float64 { return r.ProgressPct }, true},
	{"gap", func(r *Run) float64 { return r.Gap }, false},
	{"unassigned_commits", func(r *Run) float64 { return float64(r.UnassignedCommits) }, false},
	{"review_count", func(r *Run) float64 { return float64(r.ReviewCount) }, false},
}

// Diff compares the headline totals of two runs.
func Diff(prev, cur *Run) RunDiff {
	d := RunDiff{Previous: prev, Current: cur}
	if prev == nil || cur == nil {
		return d
	}
	for _, h := range headlines {
		p, c := h.value(prev), h.value(cur)
		delta := math.Round((c-p)*100) / 100
		d.Deltas = append(d.Deltas, MetricDelta{
			Name:      h.name,
			Previous:  p,
			Current:   c,
			Delta:     delta,
			Direction: direction(delta, h.higherBetter),
		})
	}
	return d
}

func direction(delta float64, higherBetter bool) string {
	switch {
	case delta == 0:
		return DirectionUnchanged
	case (delta > 0) == higherBetter:
		return DirectionImproved
	default:
		return DirectionRegressed
	}
}
