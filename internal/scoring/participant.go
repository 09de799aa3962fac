package scoring

import (
	"strconv"
	"strings"

	"github.com/intermernet/scoreboard/internal/apperr"
)

// Participant is a validated placing ready to be stored.
type Participant struct {
	ClusterID int64
	Name      string
	Position  int
	Points    int
}

// MaxPoints caps a single placing so cluster totals stay far inside int64.
const MaxPoints = 1_000_000

// NewParticipant checks the placing invariants: a name, a position of at
// least 1 and points between 0 and MaxPoints.
func NewParticipant(clusterID int64, name string, position, points int) (Participant, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return Participant{}, apperr.Validation("participant name is required")
	case position < 1:
		return Participant{}, apperr.Validation("position must be >= 1")
	case points < 0:
		return Participant{}, apperr.Validation("points must be >= 0")
	case points > MaxPoints:
		return Participant{}, apperr.Validation("points must be <= %d", MaxPoints)
	}
	return Participant{ClusterID: clusterID, Name: name, Position: position, Points: points}, nil
}

// ParticipantRow is one submitted participant before parsing. Fields hold the
// raw submitted text.
type ParticipantRow struct {
	ClusterID string
	Name      string
	Position  string
	Points    string
}

func (r ParticipantRow) blank() bool {
	return strings.TrimSpace(r.ClusterID) == "" || strings.TrimSpace(r.Name) == ""
}

// ParseRows turns submitted rows into participants. Rows missing a cluster or
// a name are skipped. Any other bad row rejects the whole submission with an
// error naming its 1-based row number.
func ParseRows(rows []ParticipantRow) ([]Participant, error) {
	out := make([]Participant, 0, len(rows))
	for i, r := range rows {
		if r.blank() {
			continue
		}
		n := i + 1

		clusterID, err := strconv.ParseInt(strings.TrimSpace(r.ClusterID), 10, 64)
		if err != nil {
			return nil, apperr.Validation("row %d: invalid cluster %q", n, r.ClusterID)
		}
		position, err := strconv.Atoi(strings.TrimSpace(r.Position))
		if err != nil {
			return nil, apperr.Validation("row %d: position must be a whole number", n)
		}
		points, err := strconv.Atoi(strings.TrimSpace(r.Points))
		if err != nil {
			return nil, apperr.Validation("row %d: points must be a whole number", n)
		}

		p, err := NewParticipant(clusterID, r.Name, position, points)
		if err != nil {
			return nil, apperr.Validation("row %d: %v", n, err)
		}
		out = append(out, p)
	}
	return out, nil
}
