// Package watcher re-runs the reconstruction at an interval and emits
// alerts when the timeline changes in a way worth looking at.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/hourwatch/internal/pipeline"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// WatchState captures the parts of a reconstruction that alerts compare.
type WatchState struct {
	Timestamp         time.Time
	SessionCount      int
	EligibleHours     float64
	TargetHours       float64
	Status            string
	UnassignedCommits int
	SkippedRecords    int

	sessionIDs map[string]timeline.WorkSession
	reviewKeys map[string]timeline.ConflictRecord
}

// Alert represents a notable change detected by the watcher.
type Alert struct {
	Level   string    `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// SnapshotFunc produces a fresh reconstruction.
type SnapshotFunc func(ctx context.Context) (*pipeline.Result, error)

// Watcher polls a SnapshotFunc and reports changes between polls.
type Watcher struct {
	snapshot      SnapshotFunc
	interval      time.Duration
	previous      *WatchState
	alertFn       func(Alert)
	lastAlertKeys map[string]bool
	now           func() time.Time
}

// New creates a Watcher. alertFn receives every alert Run produces.
func New(snapshot SnapshotFunc, interval time.Duration, alertFn func(Alert)) *Watcher {
	return &Watcher{
		snapshot:      snapshot,
		interval:      interval,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		now:           time.Now,
	}
}

// Run takes an initial snapshot, then checks at every interval. It blocks
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	w.previous = initial

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, a := range w.Check(ctx) {
				if w.alertFn != nil {
					w.alertFn(a)
				}
			}
		}
	}
}

// Check takes a new snapshot, compares it with the previous one and returns
// the alerts. An alert identical to one from the previous cycle is
// suppressed, so a snapshot that keeps failing is reported once.
func (w *Watcher) Check(ctx context.Context) []Alert {
	var raw []Alert
	curr, err := w.Snapshot(ctx)
	switch {
	case err != nil:
		raw = []Alert{{
			Level:   LevelWarning,
			Title:   "Reconstruction failed",
			Message: err.Error(),
			Time:    w.now(),
		}}
	case w.previous != nil:
		raw = Compare(w.previous, curr)
	}

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys

	if curr != nil {
		w.previous = curr
	}
	return alerts
}

// Snapshot runs the reconstruction once and summarizes it.
func (w *Watcher) Snapshot(ctx context.Context) (*WatchState, error) {
	res, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return NewState(res, w.now()), nil
}

// NewState summarizes a reconstruction result.
func NewState(res *pipeline.Result, at time.Time) *WatchState {
	s := &WatchState{
		Timestamp:         at,
		SessionCount:      len(res.Sessions),
		EligibleHours:     res.Totals.EligibleHours,
		TargetHours:       res.Totals.TargetHours,
		Status:            res.Totals.Status,
		UnassignedCommits: res.Notes.UnassignedCommits,
		SkippedRecords:    res.Notes.SkippedRecords,
		sessionIDs:        make(map[string]timeline.WorkSession, len(res.Sessions)),
		reviewKeys:        make(map[string]timeline.ConflictRecord, len(res.Review)),
	}
	for _, sess := range res.Sessions {
		s.sessionIDs[sess.SessionID] = sess
	}
	for _, r := range res.Review {
		s.reviewKeys[r.SessionID+"|"+r.OverlappingEventRef] = r
	}
	return s
}
