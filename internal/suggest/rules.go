package suggest

import (
	"fmt"
	"math"
	"strings"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

// Thresholds used by the built-in rules.
const (
	syntheticShareLimit = 0.5
	generalShareLimit   = 0.3
	maxListedDates      = 5
)

// ManualReview flags calendar conflicts that were not adjusted automatically.
// The hours at stake are the work hours of the affected sessions.
func ManualReview(ctx *AnalysisContext) []Suggestion {
	if len(ctx.Review) == 0 {
		return nil
	}
	byID := make(map[string]float64, len(ctx.Sessions))
	for _, s := range ctx.Sessions {
		byID[s.SessionID] = s.WorkHours
	}
	seen := map[string]bool{}
	hours := 0.0
	for _, r := range ctx.Review {
		if !seen[r.SessionID] {
			seen[r.SessionID] = true
			hours += byID[r.SessionID]
		}
	}
	return []Suggestion{{
		Category: "conflicts",
		Priority: PriorityCritical,
		Title:    fmt.Sprintf("Resolve %d calendar conflicts by hand", len(ctx.Review)),
		Description: fmt.Sprintf(
			"%d sessions (%.2fh) overlap calendar commitments for too long to adjust automatically. "+
				"Check each overlap and trim or drop the session before reporting.",
			len(seen), hours,
		),
		ImpactScore: ComputeImpact(hours, PriorityCritical),
	}}
}

// RemainingGap estimates how long closing the gap takes at the current
// weekly pace.
func RemainingGap(ctx *AnalysisContext) []Suggestion {
	t := ctx.Totals
	if t.Gap <= 0 {
		return nil
	}
	weeks := map[string]bool{}
	for _, s := range ctx.Sessions {
		if s.IsEligible {
			weeks[s.Start.ISOWeek()] = true
		}
	}

	desc := fmt.Sprintf("%.2fh of %.0fh reached; %.2fh to go.", t.EligibleHours, t.TargetHours, t.Gap)
	if len(weeks) > 0 && t.EligibleHours > 0 {
		pace := t.EligibleHours / float64(len(weeks))
		desc += fmt.Sprintf(" At the current pace of %.2fh per active week that takes about %.0f more weeks.",
			pace, math.Ceil(t.Gap/pace))
	}
	return []Suggestion{{
		Category:    "target",
		Priority:    PriorityHigh,
		Title:       fmt.Sprintf("Close the remaining %.2fh gap", t.Gap),
		Description: desc,
		ImpactScore: ComputeImpact(t.Gap, PriorityHigh),
	}}
}

// UncoveredEligibleDays lists days with eligible commits that no session
// covers, usually because the event export misses them or a template slot
// overlapped a real session.
func UncoveredEligibleDays(ctx *AnalysisContext) []Suggestion {
	var dates []string
	for _, d := range ctx.Unassigned {
		if d.EligibleCount > 0 {
			dates = append(dates, d.Date)
		}
	}
	if len(dates) == 0 {
		return nil
	}
	listed := dates
	suffix := ""
	if len(listed) > maxListedDates {
		listed = listed[:maxListedDates]
		suffix = fmt.Sprintf(" and %d more", len(dates)-maxListedDates)
	}
	hours := float64(len(dates)) * minTemplateHours(ctx.Slots)
	return []Suggestion{{
		Category: "coverage",
		Priority: PriorityHigh,
		Title:    fmt.Sprintf("Recover %d days with uncovered eligible commits", len(dates)),
		Description: fmt.Sprintf(
			"Eligible commits on %s%s fall outside every session. "+
				"Re-export the system event log for these dates or check the template slots; "+
				"at least %.2fh could be recovered.",
			strings.Join(listed, ", "), suffix, hours,
		),
		ImpactScore: ComputeImpact(hours, PriorityHigh),
	}}
}

// LowConfidence flags eligible REAL sessions whose bounds are uncertain.
func LowConfidence(ctx *AnalysisContext) []Suggestion {
	n := 0
	hours := 0.0
	for _, s := range ctx.Sessions {
		if s.Source == timeline.SourceReal && s.IsEligible && s.Confidence < timeline.LowConfidence {
			n++
			hours += s.WorkHours
		}
	}
	if n == 0 {
		return nil
	}
	return []Suggestion{{
		Category: "evidence",
		Priority: PriorityMedium,
		Title:    fmt.Sprintf("Verify %d low-confidence sessions", n),
		Description: fmt.Sprintf(
			"%d eligible sessions (%.2fh) ended without a clean shutdown, ran past the ceiling "+
				"or are barely above the minimum length. Confirm their bounds before reporting.",
			n, hours,
		),
		ImpactScore: ComputeImpact(hours, PriorityMedium),
	}}
}

// SyntheticReliance warns when most eligible hours come from templates.
func SyntheticReliance(ctx *AnalysisContext) []Suggestion {
	t := ctx.Totals
	if t.EligibleHours <= 0 {
		return nil
	}
	synthetic := bucketEligible(t.BySource, string(timeline.SourceSynthetic))
	share := synthetic / t.EligibleHours
	if share <= syntheticShareLimit {
		return nil
	}
	return []Suggestion{{
		Category: "evidence",
		Priority: PriorityMedium,
		Title:    fmt.Sprintf("%.0f%% of eligible hours are synthetic", share*100),
		Description: fmt.Sprintf(
			"%.2fh of %.2fh eligible hours come from template sessions backed only by commits. "+
				"A more complete system event export turns these into measured sessions.",
			synthetic, t.EligibleHours,
		),
		ImpactScore: ComputeImpact(synthetic, PriorityMedium),
	}}
}

// GeneralCategoryShare warns when much of the work falls in the fallback
// category, which weakens the R&D justification.
func GeneralCategoryShare(ctx *AnalysisContext) []Suggestion {
	t := ctx.Totals
	if t.EligibleHours <= 0 {
		return nil
	}
	general := bucketEligible(t.ByCategory, string(timeline.CategoryGeneralRD))
	share := general / t.EligibleHours
	if share <= generalShareLimit {
		return nil
	}
	return []Suggestion{{
		Category: "categories",
		Priority: PriorityLow,
		Title:    fmt.Sprintf("%.0f%% of eligible hours are uncategorized", share*100),
		Description: fmt.Sprintf(
			"%.2fh fall in %s. Add project-specific keywords to the category rules or use "+
				"more descriptive commit messages.",
			general, timeline.CategoryGeneralRD,
		),
		ImpactScore: ComputeImpact(general, PriorityLow),
	}}
}

// DataQuality reports skipped input records and malformed sessions.
func DataQuality(ctx *AnalysisContext) []Suggestion {
	n := ctx.Notes
	issues := n.SkippedRecords + len(n.IntervalErrors) + n.UnclosedSessions
	if issues == 0 {
		return nil
	}
	var parts []string
	if n.SkippedRecords > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped input records", n.SkippedRecords))
	}
	if n.UnclosedSessions > 0 {
		parts = append(parts, fmt.Sprintf("%d sessions without a closing event", n.UnclosedSessions))
	}
	if len(n.IntervalErrors) > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid session intervals", len(n.IntervalErrors)))
	}
	return []Suggestion{{
		Category:    "data",
		Priority:    PriorityLow,
		Title:       "Fix input data problems",
		Description: "Found " + strings.Join(parts, ", ") + ". See notes.json for samples.",
		ImpactScore: float64(issues) * 0.1,
	}}
}

func bucketEligible(buckets []timeline.Bucket, key string) float64 {
	for _, b := range buckets {
		if b.Key == key {
			return b.EligibleHours
		}
	}
	return 0
}

func minTemplateHours(slots []timeline.SlotTemplate) float64 {
	if len(slots) == 0 {
		slots = timeline.DefaultSlots
	}
	least := 0.0
	for i, s := range slots {
		if i == 0 || s.WorkHours < least {
			least = s.WorkHours
		}
	}
	return least
}
