package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

func TestGenerateSynthetic_MorningSession(t *testing.T) {
	unassigned := Unassigned{
		"2025-05-07": {commit("2025-05-07 09:15:00", "api", "a1", true)},
	}

	res := GenerateSynthetic(unassigned, nil, DefaultSlots)

	require.Len(t, res.Sessions, 1)
	s := res.Sessions[0]
	assert.Equal(t, "syn-20250507-morning-1", s.SessionID)
	assert.Equal(t, "morning", s.Slot)
	assert.Equal(t, timepoint.TimePoint("2025-05-07 08:00:00"), s.Start)
	assert.Equal(t, timepoint.TimePoint("2025-05-07 12:00:00"), s.End)
	assert.Equal(t, 4.0, s.DurationHours)
	assert.Equal(t, 3.5, s.WorkHours)
	assert.Equal(t, SourceSynthetic, s.Source)
	assert.True(t, s.IsEligible)
	assert.Equal(t, ConfidenceSynthetic, s.Confidence)
	assert.Less(t, s.Confidence, MinRealConfidence)
	require.Len(t, s.AssignedCommits, 1)
	assert.Empty(t, res.Unassigned)
}

func TestGenerateSynthetic_GroupsBySlot(t *testing.T) {
	unassigned := Unassigned{
		"2025-05-07": {
			commit("2025-05-07 20:30:00", "api", "e1", false),
			commit("2025-05-07 09:00:00", "api", "m1", true),
			commit("2025-05-07 11:40:00", "web", "m2", false),
			commit("2025-05-07 14:10:00", "api", "a1", true),
			commit("2025-05-07 12:20:00", "api", "a0", false),
		},
	}

	res := GenerateSynthetic(unassigned, nil, DefaultSlots)

	require.Len(t, res.Sessions, 3)
	assert.Equal(t, "syn-20250507-morning-1", res.Sessions[0].SessionID)
	assert.Len(t, res.Sessions[0].AssignedCommits, 2)
	assert.Equal(t, "syn-20250507-afternoon-1", res.Sessions[1].SessionID)
	assert.Len(t, res.Sessions[1].AssignedCommits, 2)

	// The evening run has no eligible commit of its own but its date does.
	evening := res.Sessions[2]
	assert.Equal(t, "syn-20250507-evening-1", evening.SessionID)
	assert.True(t, evening.IsEligible)
	require.Len(t, evening.AssignedCommits, 1)
	assert.Equal(t, "e1", evening.AssignedCommits[0].Hash)
	assert.Empty(t, res.Unassigned)
	assert.Zero(t, res.SkippedIneligible)
}

func TestGenerateSynthetic_QualifyingDateCoversIneligibleSlot(t *testing.T) {
	unassigned := Unassigned{
		"2025-05-06": {
			commit("2025-05-06 09:15:00", "api", "m", true),
			commit("2025-05-06 14:00:00", "web", "a", false),
		},
	}

	res := GenerateSynthetic(unassigned, nil, DefaultSlots)

	require.Len(t, res.Sessions, 2)
	assert.Equal(t, "morning", res.Sessions[0].Slot)
	assert.Equal(t, "afternoon", res.Sessions[1].Slot)
	assert.Empty(t, res.Unassigned)
	assert.Zero(t, res.SkippedIneligible)
}

func TestGenerateSynthetic_SkipsDatesWithoutEligibleCommits(t *testing.T) {
	unassigned := Unassigned{
		"2025-05-08": {commit("2025-05-08 10:00:00", "api", "x", false)},
	}

	res := GenerateSynthetic(unassigned, nil, DefaultSlots)

	assert.Empty(t, res.Sessions)
	assert.Equal(t, 1, res.Unassigned.Count())
	assert.Equal(t, 1, res.SkippedIneligible)
}

func TestGenerateSynthetic_DoesNotOverlapRealSessions(t *testing.T) {
	existing := []WorkSession{sess("real", "2025-05-07 08:30:00", "2025-05-07 10:00:00")}
	unassigned := Unassigned{
		"2025-05-07": {
			commit("2025-05-07 11:00:00", "api", "m", true),
			commit("2025-05-07 15:00:00", "api", "a", true),
		},
	}

	res := GenerateSynthetic(unassigned, existing, DefaultSlots)

	require.Len(t, res.Sessions, 1)
	assert.Equal(t, "afternoon", res.Sessions[0].Slot)
	require.Len(t, res.Unassigned["2025-05-07"], 1)
	assert.Equal(t, "m", res.Unassigned["2025-05-07"][0].Hash)
	assert.Equal(t, 1, res.SkippedOverlap)
}

func TestGenerateSynthetic_Idempotent(t *testing.T) {
	unassigned := Unassigned{
		"2025-05-07": {commit("2025-05-07 09:15:00", "api", "a", true)},
		"2025-05-09": {
			commit("2025-05-09 19:30:00", "api", "b", true),
			commit("2025-05-09 13:05:00", "web", "c", true),
		},
	}

	first := GenerateSynthetic(unassigned, nil, DefaultSlots)
	second := GenerateSynthetic(unassigned, nil, DefaultSlots)

	assert.Equal(t, first, second)
	var ids []string
	for _, s := range first.Sessions {
		ids = append(ids, s.SessionID)
	}
	assert.Equal(t, []string{"syn-20250507-morning-1", "syn-20250509-afternoon-1", "syn-20250509-evening-1"}, ids)
}

func TestSlotFor(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "morning"},
		{8, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{17, "afternoon"},
		{18, "evening"},
		{23, "evening"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, DefaultSlots[slotFor(tc.hour, DefaultSlots)].Name, "hour=%d", tc.hour)
	}
}
