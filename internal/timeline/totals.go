package timeline

import (
	"math"
	"sort"
)

// Achievement statuses.
const (
	StatusAchieved   = "ACHIEVED"
	StatusInProgress = "IN_PROGRESS"
)

// LowConfidence is the confidence under which a session counts as low
// confidence in Totals.
const LowConfidence = 0.7

// noRepo keys hours of sessions without commits in the repository breakdown.
const noRepo = "(none)"

// Bucket aggregates sessions sharing one key.
type Bucket struct {
	Key           string  `json:"key"`
	Sessions      int     `json:"sessions"`
	Hours         float64 `json:"hours"`
	EligibleHours float64 `json:"eligible_hours"`
}

// Totals summarizes a session list against a target hour count. Hours are
// work hours.
type Totals struct {
	TotalSessions         int     `json:"total_sessions"`
	TotalHours            float64 `json:"total_hours"`
	EligibleSessions      int     `json:"eligible_sessions"`
	EligibleHours         float64 `json:"eligible_hours"`
	NonEligibleHours      float64 `json:"non_eligible_hours"`
	PercentEligible       float64 `json:"percent_eligible"`
	LowConfidenceSessions int     `json:"low_confidence_sessions"`
	ConflictCount         int     `json:"conflict_count"`
	ReviewCount           int     `json:"review_count"`
	TargetHours           float64 `json:"target_hours"`
	Gap                   float64 `json:"gap"`
	ProgressPct           float64 `json:"progress_pct"`
	Status                string  `json:"achievement_status"`

	ByCategory   []Bucket `json:"by_category"`
	BySource     []Bucket `json:"by_source"`
	ByMonth      []Bucket `json:"by_month"`
	ByWeek       []Bucket `json:"by_week"`
	ByRepository []Bucket `json:"by_repository"`
}

// ComputeTotals aggregates sessions. It does not modify them.
func ComputeTotals(sessions []WorkSession, targetHours float64) Totals {
	t := Totals{TotalSessions: len(sessions), TargetHours: targetHours}

	byCategory := map[string]*Bucket{}
	bySource := map[string]*Bucket{}
	byMonth := map[string]*Bucket{}
	byWeek := map[string]*Bucket{}
	byRepo := map[string]*Bucket{}

	var total, eligible float64
	for _, s := range sessions {
		h := s.WorkHours
		total += h
		eh := 0.0
		if s.IsEligible {
			t.EligibleSessions++
			eligible += h
			eh = h
		}
		if s.Confidence < LowConfidence {
			t.LowConfidenceSessions++
		}
		for _, c := range s.Conflicts {
			t.ConflictCount++
			if c.Resolution == ResolutionManualReview {
				t.ReviewCount++
			}
		}

		cat := string(s.Category)
		if cat == "" {
			cat = "UNCATEGORIZED"
		}
		addTo(byCategory, cat, 1, h, eh)
		addTo(bySource, string(s.Source), 1, h, eh)
		addTo(byMonth, s.Start.Month(), 1, h, eh)
		addTo(byWeek, s.Start.ISOWeek(), 1, h, eh)

		for _, rs := range repoShares(s.AssignedCommits) {
			addTo(byRepo, rs.repo, 1, h*rs.share, eh*rs.share)
		}
	}

	t.TotalHours = round2(total)
	t.EligibleHours = round2(eligible)
	t.NonEligibleHours = round2(total - eligible)
	if total > 0 {
		t.PercentEligible = round2(eligible / total * 100)
	}
	t.Gap = round2(math.Max(0, targetHours-t.EligibleHours))
	if targetHours > 0 {
		t.ProgressPct = round2(math.Min(100, t.EligibleHours/targetHours*100))
	}
	t.Status = StatusInProgress
	if t.Gap == 0 {
		t.Status = StatusAchieved
	}

	t.ByCategory = sortedBuckets(byCategory)
	t.BySource = sortedBuckets(bySource)
	t.ByMonth = sortedBuckets(byMonth)
	t.ByWeek = sortedBuckets(byWeek)
	t.ByRepository = sortedBuckets(byRepo)
	return t
}

type repoShare struct {
	repo  string
	share float64
}

// repoShares splits one session over the repositories of its commits in
// proportion to commit counts, ordered by repository name.
func repoShares(commits []Commit) []repoShare {
	if len(commits) == 0 {
		return []repoShare{{repo: noRepo, share: 1}}
	}
	counts := make(map[string]int)
	for _, c := range commits {
		counts[c.RepoName]++
	}
	shares := make([]repoShare, 0, len(counts))
	for repo, n := range counts {
		shares = append(shares, repoShare{repo: repo, share: float64(n) / float64(len(commits))})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].repo < shares[j].repo })
	return shares
}

func addTo(m map[string]*Bucket, key string, sessions int, hours, eligible float64) {
	b, ok := m[key]
	if !ok {
		b = &Bucket{Key: key}
		m[key] = b
	}
	b.Sessions += sessions
	b.Hours += hours
	b.EligibleHours += eligible
}

func sortedBuckets(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, Bucket{
			Key:           b.Key,
			Sessions:      b.Sessions,
			Hours:         round2(b.Hours),
			EligibleHours: round2(b.EligibleHours),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
