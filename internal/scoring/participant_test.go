package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intermernet/scoreboard/internal/apperr"
)

func TestNewParticipant(t *testing.T) {
	p, err := NewParticipant(3, " Ann ", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, Participant{ClusterID: 3, Name: "Ann", Position: 1, Points: 0}, p)

	_, err = NewParticipant(3, "Max", 1, MaxPoints)
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		pname    string
		position int
		points   int
	}{
		{"negative points", "a", 1, -1},
		{"points above cap", "a", 1, MaxPoints + 1},
		{"zero position", "a", 0, 5},
		{"negative position", "a", -3, 5},
		{"blank name", "  ", 1, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParticipant(1, tc.pname, tc.position, tc.points)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestParseRowsSkipsIncompleteRows(t *testing.T) {
	got, err := ParseRows([]ParticipantRow{
		{ClusterID: "1", Name: "Ann", Position: "1", Points: "10"},
		{ClusterID: " ", Name: "No cluster", Position: "oops", Points: "oops"},
		{ClusterID: "2", Name: "", Position: "oops", Points: "oops"},
		{ClusterID: " 2 ", Name: "Bob", Position: "2", Points: "0"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Participant{
		{ClusterID: 1, Name: "Ann", Position: 1, Points: 10},
		{ClusterID: 2, Name: "Bob", Position: 2, Points: 0},
	}, got)

	got, err = ParseRows(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseRowsRejectsWholeSubmission(t *testing.T) {
	_, err := ParseRows([]ParticipantRow{
		{ClusterID: "1", Name: "Ann", Position: "1", Points: "10"},
		{ClusterID: "1", Name: "Bob", Position: "1.5", Points: "10"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "row 2")
}
