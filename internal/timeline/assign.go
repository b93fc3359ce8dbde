package timeline

import (
	"sort"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// AssignResult is the output of AssignCommits.
type AssignResult struct {
	Sessions   []WorkSession `json:"sessions"`
	Unassigned Unassigned    `json:"unassigned"`
	Assigned   int           `json:"assigned"`
}

// sessionIndex answers "earliest session containing t" in O(log n) even when
// sessions overlap. maxEnd[i] is the latest end among sessions[0..i], which
// is non-decreasing and therefore binary-searchable.
type sessionIndex struct {
	sessions []WorkSession
	maxEnd   []timepoint.TimePoint
}

func newSessionIndex(sessions []WorkSession) *sessionIndex {
	idx := &sessionIndex{sessions: sessions, maxEnd: make([]timepoint.TimePoint, len(sessions))}
	var running timepoint.TimePoint
	for i, s := range sessions {
		running = timepoint.Max(running, s.End)
		idx.maxEnd[i] = running
	}
	return idx
}

// find returns the index of the earliest-starting session whose [Start, End]
// contains t, or -1.
func (idx *sessionIndex) find(t timepoint.TimePoint) int {
	// Sessions at or after lastStart begin after t.
	lastStart := sort.Search(len(idx.sessions), func(i int) bool {
		return idx.sessions[i].Start > t
	})
	// The first i with maxEnd[i] >= t has End >= t itself, since every
	// earlier session ends before t.
	first := sort.Search(len(idx.maxEnd), func(i int) bool {
		return idx.maxEnd[i] >= t
	})
	if first < lastStart {
		return first
	}
	return -1
}

// AssignCommits attaches each commit to the earliest session containing its
// timestamp (inclusive bounds) and collects the rest by date. Eligible
// commits promote a session's IsEligible; promotion is never undone. The
// input sessions are copied, not mutated.
func AssignCommits(sessions []WorkSession, commits []Commit) AssignResult {
	out := make([]WorkSession, len(sessions))
	copy(out, sessions)
	for i := range out {
		out[i].AssignedCommits = append([]Commit{}, out[i].AssignedCommits...)
	}
	SortSessions(out)

	ordered := append([]Commit(nil), commits...)
	SortCommits(ordered)

	res := AssignResult{Sessions: out, Unassigned: Unassigned{}}
	idx := newSessionIndex(out)

	for _, c := range ordered {
		i := idx.find(c.Timestamp)
		if i < 0 {
			date := c.Timestamp.Date()
			res.Unassigned[date] = append(res.Unassigned[date], c)
			continue
		}
		out[i].AssignedCommits = append(out[i].AssignedCommits, c)
		if c.IsEligible {
			out[i].IsEligible = true
		}
		res.Assigned++
	}

	return res
}

// SortSessions orders sessions by start, then end, then id.
func SortSessions(sessions []WorkSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.SessionID < b.SessionID
	})
}

// SortCommits orders commits by timestamp, then repository, then hash.
func SortCommits(commits []Commit) {
	sort.SliceStable(commits, func(i, j int) bool {
		a, b := commits[i], commits[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.RepoName != b.RepoName {
			return a.RepoName < b.RepoName
		}
		return a.Hash < b.Hash
	})
}
