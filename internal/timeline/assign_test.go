package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

func sess(id, start, end string) WorkSession {
	s, err := NewSession(id, timepoint.TimePoint(start), timepoint.TimePoint(end), SourceReal)
	if err != nil {
		panic(err)
	}
	s.WorkHours = s.DurationHours
	s.Confidence = ConfidenceClean
	return *s
}

func commit(ts, repo, hash string, eligible bool) Commit {
	return Commit{
		Timestamp:  timepoint.TimePoint(ts),
		RepoName:   repo,
		Hash:       hash,
		Author:     "someone",
		Message:    "change " + hash,
		IsEligible: eligible,
	}
}

func TestAssignCommits_MatchesAndPromotes(t *testing.T) {
	sessions := []WorkSession{sess("s1", "2025-05-05 13:00:00", "2025-05-05 17:00:00")}
	c := Commit{
		Timestamp:  timepoint.MustParse("2025-05-05T13:45:00+02:00"),
		RepoName:   "api",
		Author:     "Pieter Kuppens",
		Message:    "Implement JWT auth",
		Hash:       "abc123",
		IsEligible: true,
	}

	res := AssignCommits(sessions, []Commit{c})

	require.Len(t, res.Sessions, 1)
	require.Len(t, res.Sessions[0].AssignedCommits, 1)
	assert.Equal(t, "abc123", res.Sessions[0].AssignedCommits[0].Hash)
	assert.True(t, res.Sessions[0].IsEligible)
	assert.Empty(t, res.Unassigned)
	assert.Equal(t, 1, res.Assigned)

	// The input is left untouched.
	assert.False(t, sessions[0].IsEligible)
	assert.Empty(t, sessions[0].AssignedCommits)
}

func TestAssignCommits_InclusiveBoundaries(t *testing.T) {
	sessions := []WorkSession{sess("s1", "2025-05-05 09:00:00", "2025-05-05 10:00:00")}
	commits := []Commit{
		commit("2025-05-05 09:00:00", "r", "a", false),
		commit("2025-05-05 10:00:00", "r", "b", false),
		commit("2025-05-05 10:00:01", "r", "c", false),
		commit("2025-05-05 08:59:59", "r", "d", false),
	}

	res := AssignCommits(sessions, commits)

	require.Len(t, res.Sessions[0].AssignedCommits, 2)
	assert.Equal(t, "a", res.Sessions[0].AssignedCommits[0].Hash)
	assert.Equal(t, "b", res.Sessions[0].AssignedCommits[1].Hash)
	require.Len(t, res.Unassigned["2025-05-05"], 2)
	assert.Equal(t, "d", res.Unassigned["2025-05-05"][0].Hash)
	assert.Equal(t, "c", res.Unassigned["2025-05-05"][1].Hash)
}

func TestAssignCommits_ChronologicalOrderAndMonotonicPromotion(t *testing.T) {
	sessions := []WorkSession{sess("s1", "2025-05-05 09:00:00", "2025-05-05 12:00:00")}
	commits := []Commit{
		commit("2025-05-05 11:00:00", "r", "late-not-eligible", false),
		commit("2025-05-05 09:30:00", "r", "early-eligible", true),
		commit("2025-05-05 10:00:00", "r", "mid-not-eligible", false),
	}

	res := AssignCommits(sessions, commits)

	got := res.Sessions[0].AssignedCommits
	require.Len(t, got, 3)
	assert.Equal(t, []string{"early-eligible", "mid-not-eligible", "late-not-eligible"},
		[]string{got[0].Hash, got[1].Hash, got[2].Hash})
	assert.True(t, res.Sessions[0].IsEligible)
}

func TestAssignCommits_OverlappingSessionsPickEarliest(t *testing.T) {
	sessions := []WorkSession{
		sess("later", "2025-05-05 10:00:00", "2025-05-05 12:00:00"),
		sess("long", "2025-05-05 08:00:00", "2025-05-05 18:00:00"),
		sess("short", "2025-05-05 08:30:00", "2025-05-05 09:00:00"),
	}
	commits := []Commit{
		commit("2025-05-05 10:30:00", "r", "x", true),
		commit("2025-05-05 08:45:00", "r", "y", false),
		commit("2025-05-05 17:00:00", "r", "z", false),
	}

	res := AssignCommits(sessions, commits)

	byID := map[string]WorkSession{}
	for _, s := range res.Sessions {
		byID[s.SessionID] = s
	}
	assert.Len(t, byID["long"].AssignedCommits, 3)
	assert.Empty(t, byID["later"].AssignedCommits)
	assert.Empty(t, byID["short"].AssignedCommits)
}

func TestAssignCommits_FindsLaterSessionWhenEarlierEnded(t *testing.T) {
	sessions := []WorkSession{
		sess("a", "2025-05-05 08:00:00", "2025-05-05 09:00:00"),
		sess("b", "2025-05-05 08:30:00", "2025-05-05 11:00:00"),
		sess("c", "2025-05-05 12:00:00", "2025-05-05 13:00:00"),
	}

	res := AssignCommits(sessions, []Commit{
		commit("2025-05-05 10:00:00", "r", "in-b", false),
		commit("2025-05-05 11:30:00", "r", "gap", false),
		commit("2025-05-05 12:30:00", "r", "in-c", false),
	})

	assert.Len(t, res.Sessions[0].AssignedCommits, 0)
	assert.Len(t, res.Sessions[1].AssignedCommits, 1)
	assert.Len(t, res.Sessions[2].AssignedCommits, 1)
	assert.Equal(t, 1, res.Unassigned.Count())
}

func TestAssignCommits_Conservation(t *testing.T) {
	sessions := []WorkSession{
		sess("s1", "2025-05-05 09:00:00", "2025-05-05 12:00:00"),
		sess("s2", "2025-05-06 13:00:00", "2025-05-06 17:00:00"),
	}
	var commits []Commit
	for i, ts := range []string{
		"2025-05-05 08:00:00", "2025-05-05 09:15:00", "2025-05-05 11:59:00",
		"2025-05-05 20:00:00", "2025-05-06 13:00:00", "2025-05-06 16:00:00",
		"2025-05-07 10:00:00",
	} {
		commits = append(commits, commit(ts, "r", string(rune('a'+i)), i%2 == 0))
	}

	res := AssignCommits(sessions, commits)

	seen := map[string]int{}
	for _, s := range res.Sessions {
		for _, c := range s.AssignedCommits {
			seen[c.Hash]++
		}
	}
	for _, list := range res.Unassigned {
		for _, c := range list {
			seen[c.Hash]++
		}
	}
	require.Len(t, seen, len(commits))
	for hash, n := range seen {
		assert.Equal(t, 1, n, "commit %s", hash)
	}
	assert.Equal(t, len(commits), res.Assigned+res.Unassigned.Count())
}

func TestAssignCommits_NoSessions(t *testing.T) {
	res := AssignCommits(nil, []Commit{commit("2025-05-05 10:00:00", "r", "a", true)})
	assert.Empty(t, res.Sessions)
	assert.Equal(t, 1, res.Unassigned.Count())
}
