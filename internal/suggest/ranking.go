package suggest

import "sort"

// RankSuggestions sorts by impact score, highest first. Ties keep priority
// order, then title order, so output is stable.
func RankSuggestions(suggestions []Suggestion) []Suggestion {
	sorted := make([]Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ImpactScore != b.ImpactScore {
			return a.ImpactScore > b.ImpactScore
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Title < b.Title
	})
	return sorted
}

// ComputeImpact scores a suggestion as hours at stake weighted by priority:
// a critical item counts four times a low one.
func ComputeImpact(hours float64, priority int) float64 {
	if hours <= 0 || priority < PriorityCritical {
		return 0
	}
	weight := float64(PriorityLow - priority + 1)
	return hours * weight
}
