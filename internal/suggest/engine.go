package suggest

// Engine runs all registered rules against an AnalysisContext and collects
// the resulting suggestions.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with all built-in rules registered.
func NewEngine() *Engine {
	return &Engine{
		rules: []Rule{
			ManualReview,
			RemainingGap,
			UncoveredEligibleDays,
			LowConfidence,
			SyntheticReliance,
			GeneralCategoryShare,
			DataQuality,
		},
	}
}

// Run executes every rule and returns the suggestions ranked by impact.
func (e *Engine) Run(ctx *AnalysisContext) []Suggestion {
	var all []Suggestion
	for _, rule := range e.rules {
		all = append(all, rule(ctx)...)
	}
	return RankSuggestions(all)
}
