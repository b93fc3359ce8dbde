package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

// NewRun builds a Run for the given totals with a fresh id.
func NewRun(command, version string, t timeline.Totals, unassigned int) *Run {
	return &Run{
		ID:                uuid.NewString(),
		TakenAt:           time.Now().UTC(),
		Command:           command,
		Version:           version,
		TargetHours:       t.TargetHours,
		TotalSessions:     t.TotalSessions,
		TotalHours:        t.TotalHours,
		EligibleSessions:  t.EligibleSessions,
		EligibleHours:     t.EligibleHours,
		Gap:               t.Gap,
		ProgressPct:       t.ProgressPct,
		Status:            t.Status,
		UnassignedCommits: unassigned,
		ReviewCount:       t.ReviewCount,
	}
}

// MetricsFromTotals flattens the breakdowns of t into named metrics
// ("category:ACCESS_CONTROL", "month:2025-05", ...) holding eligible hours.
func MetricsFromTotals(t timeline.Totals) []RunMetric {
	var out []RunMetric
	add := func(prefix string, buckets []timeline.Bucket) {
		for _, b := range buckets {
			out = append(out, RunMetric{
				Name:   prefix + ":" + b.Key,
				Value:  b.EligibleHours,
				Detail: fmt.Sprintf("%d sessions, %.2fh total", b.Sessions, b.Hours),
			})
		}
	}
	add("category", t.ByCategory)
	add("source", t.BySource)
	add("month", t.ByMonth)
	add("repo", t.ByRepository)
	return out
}

// SessionRows summarizes sessions for storage.
func SessionRows(sessions []timeline.WorkSession) []SessionRow {
	rows := make([]SessionRow, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, SessionRow{
			SessionID:  s.SessionID,
			Start:      string(s.Start),
			End:        string(s.End),
			WorkHours:  s.WorkHours,
			Confidence: s.Confidence,
			Source:     string(s.Source),
			Category:   string(s.Category),
			IsEligible: s.IsEligible,
			Conflicts:  len(s.Conflicts),
		})
	}
	return rows
}

// SaveRun stores a run with its metrics and sessions in one transaction.
// Writes that hit a locked database are retried with backoff.
func (db *DB) SaveRun(ctx context.Context, run *Run, metrics []RunMetric, sessions []SessionRow, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = db.saveRun(ctx, run, metrics, sessions)
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("retrying run insert", "attempt", n+1, "run_id", run.ID, "error", err)
		}),
		retry.RetryIf(isBusy),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return fmt.Errorf("saving run %s: %w", run.ID, lastErr)
	}
	return nil
}

func (db *DB) saveRun(ctx context.Context, run *Run, metrics []RunMetric, sessions []SessionRow) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs
		(id, taken_at, command, version, target_hours, total_sessions, total_hours,
		 eligible_sessions, eligible_hours, gap, progress_pct, status,
		 unassigned_commits, review_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TakenAt.UTC().Format(time.RFC3339), run.Command, run.Version,
		run.TargetHours, run.TotalSessions, run.TotalHours, run.EligibleSessions,
		run.EligibleHours, run.Gap, run.ProgressPct, run.Status,
		run.UnassignedCommits, run.ReviewCount,
	)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, m := range metrics {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_metrics (run_id, metric_name, metric_value, detail) VALUES (?, ?, ?, ?)",
			run.ID, m.Name, m.Value, m.Detail,
		); err != nil {
			return err
		}
	}

	for _, s := range sessions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_sessions
			(run_id, session_id, start_at, end_at, work_hours, confidence, source,
			 category, is_eligible, conflicts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, s.SessionID, s.Start, s.End, s.WorkHours, s.Confidence,
			s.Source, s.Category, s.IsEligible, s.Conflicts,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	run.Seq = seq
	return nil
}

// isBusy reports whether err is SQLite refusing a write because another
// connection holds the lock.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

const runColumns = `seq, id, taken_at, command, version, target_hours, total_sessions,
	total_hours, eligible_sessions, eligible_hours, gap, progress_pct, status,
	unassigned_commits, review_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var takenAt string
	err := row.Scan(&r.Seq, &r.ID, &takenAt, &r.Command, &r.Version, &r.TargetHours,
		&r.TotalSessions, &r.TotalHours, &r.EligibleSessions, &r.EligibleHours,
		&r.Gap, &r.ProgressPct, &r.Status, &r.UnassignedCommits, &r.ReviewCount)
	if err != nil {
		return nil, err
	}
	r.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	return &r, nil
}

func scanOneRun(row *sql.Row) (*Run, error) {
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetRun returns the run with the given id, or nil if there is none.
func (db *DB) GetRun(id string) (*Run, error) {
	return scanOneRun(db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
}

// GetLatestRun returns the most recent run, or nil if none exist.
func (db *DB) GetLatestRun() (*Run, error) {
	return db.GetRunN(1)
}

// GetRunN returns the Nth most recent run (1 = latest, 2 = previous, ...),
// or nil when fewer than n runs are stored.
func (db *DB) GetRunN(n int) (*Run, error) {
	if n < 1 {
		return nil, fmt.Errorf("run index must be at least 1, got %d", n)
	}
	return scanOneRun(db.conn.QueryRow(
		"SELECT "+runColumns+" FROM runs ORDER BY seq DESC LIMIT 1 OFFSET ?", n-1))
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query("SELECT "+runColumns+" FROM runs ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunMetrics returns the metrics stored with a run, ordered by name.
func (db *DB) GetRunMetrics(runID string) ([]RunMetric, error) {
	rows, err := db.conn.Query(
		"SELECT run_id, metric_name, metric_value, detail FROM run_metrics WHERE run_id = ? ORDER BY metric_name",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var metrics []RunMetric
	for rows.Next() {
		var m RunMetric
		var detail sql.NullString
		if err := rows.Scan(&m.RunID, &m.Name, &m.Value, &detail); err != nil {
			return nil, err
		}
		m.Detail = detail.String
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetRunSessions returns the sessions stored with a run in start order.
func (db *DB) GetRunSessions(runID string) ([]SessionRow, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, session_id, start_at, end_at, work_hours, confidence, source,
		 category, is_eligible, conflicts
		 FROM run_sessions WHERE run_id = ? ORDER BY start_at, session_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		var category sql.NullString
		if err := rows.Scan(&s.RunID, &s.SessionID, &s.Start, &s.End, &s.WorkHours,
			&s.Confidence, &s.Source, &category, &s.IsEligible, &s.Conflicts); err != nil {
			return nil, err
		}
		s.Category = category.String
		out = append(out, s)
	}
	return out, rows.Err()
}
