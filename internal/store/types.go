// Package store keeps a SQLite history of reconstruction runs so progress
// toward the target can be tracked over time.
package store

import "time"

// Run is one stored pipeline run with its headline totals.
type Run struct {
	Seq               int64     `json:"seq"`
	ID                string    `json:"id"`
	TakenAt           time.Time `json:"taken_at"`
	Command           string    `json:"command"`
	Version           string    `json:"version"`
	TargetHours       float64   `json:"target_hours"`
	TotalSessions     int       `json:"total_sessions"`
	TotalHours        float64   `json:"total_hours"`
	EligibleSessions  int       `json:"eligible_sessions"`
	EligibleHours     float64   `json:"eligible_hours"`
	Gap               float64   `json:"gap"`
	ProgressPct       float64   `json:"progress_pct"`
	Status            string    `json:"status"`
	UnassignedCommits int       `json:"unassigned_commits"`
	ReviewCount       int       `json:"review_count"`
}

// RunMetric is a named value recorded with a run, e.g. hours per category.
type RunMetric struct {
	RunID  string  `json:"run_id"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail,omitempty"`
}

// SessionRow is the stored summary of one session in a run.
type SessionRow struct {
	RunID      string  `json:"run_id"`
	SessionID  string  `json:"session_id"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	WorkHours  float64 `json:"work_hours"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Category   string  `json:"category,omitempty"`
	IsEligible bool    `json:"is_eligible"`
	Conflicts  int     `json:"conflicts"`
}

// RunDiff compares two runs.
type RunDiff struct {
	Previous *Run          `json:"previous"`
	Current  *Run          `json:"current"`
	Deltas   []MetricDelta `json:"deltas"`
}

// MetricDelta is the change in one metric between two runs.
type MetricDelta struct {
	Name      string  `json:"name"`
	Previous  float64 `json:"previous"`
	Current   float64 `json:"current"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"` // "improved", "regressed", "unchanged"
}
