// Package suggest turns a reconstruction result into ranked, actionable
// recommendations for closing the gap to the target.
package suggest

import (
	"github.com/blackwell-systems/hourwatch/internal/pipeline"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

// Priority levels for suggestions.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Suggestion represents an actionable recommendation.
type Suggestion struct {
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImpactScore float64 `json:"impact_score"`
}

// AnalysisContext is the data rules look at.
type AnalysisContext struct {
	Totals     timeline.Totals
	Sessions   []timeline.WorkSession
	Review     []timeline.ConflictRecord
	Unassigned []pipeline.UnassignedDay
	Notes      pipeline.Notes

	// Slots are the synthetic templates in use; nil means the defaults.
	Slots []timeline.SlotTemplate
}

// NewContext builds an AnalysisContext from a pipeline result.
func NewContext(res *pipeline.Result, slots []timeline.SlotTemplate) *AnalysisContext {
	return &AnalysisContext{
		Totals:     res.Totals,
		Sessions:   res.Sessions,
		Review:     res.Review,
		Unassigned: res.UnassignedReport(),
		Notes:      res.Notes,
		Slots:      slots,
	}
}

// Rule examines the context and produces zero or more suggestions.
type Rule func(ctx *AnalysisContext) []Suggestion
