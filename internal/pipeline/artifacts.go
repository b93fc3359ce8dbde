package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

// Artifact file names written by WriteArtifacts.
const (
	SessionsFile   = "sessions.json"
	UnassignedFile = "unassigned.json"
	ReviewFile     = "review.json"
	TotalsFile     = "totals.json"
	NotesFile      = "notes.json"
)

// UnassignedDay lists the commits on one date that no session covers.
type UnassignedDay struct {
	Date          string            `json:"date"`
	Commits       int               `json:"commits"`
	EligibleCount int               `json:"eligible_commits"`
	Records       []timeline.Commit `json:"records"`
}

// UnassignedReport flattens the unassigned map into date order.
func (r *Result) UnassignedReport() []UnassignedDay {
	dates := make([]string, 0, len(r.Unassigned))
	for d := range r.Unassigned {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	days := make([]UnassignedDay, 0, len(dates))
	for _, d := range dates {
		commits := r.Unassigned[d]
		day := UnassignedDay{Date: d, Commits: len(commits), Records: commits}
		for _, c := range commits {
			if c.IsEligible {
				day.EligibleCount++
			}
		}
		days = append(days, day)
	}
	return days
}

// WriteArtifacts writes the result as indented JSON files under dir. The
// same result always produces byte-identical files.
func WriteArtifacts(dir string, r *Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	files := []struct {
		name string
		v    any
	}{
		{SessionsFile, r.Sessions},
		{UnassignedFile, r.UnassignedReport()},
		{ReviewFile, r.Review},
		{TotalsFile, r.Totals},
		{NotesFile, r.Notes},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeJSON(path, f.v); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
