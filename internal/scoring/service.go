// Package scoring owns the competition data: events, their participants and
// the cluster leaderboard derived from them.
package scoring

import (
	"time"

	"github.com/intermernet/scoreboard/internal/audit"
	"github.com/intermernet/scoreboard/internal/database"
)

// Service runs leaderboard queries and event mutations against the store.
type Service struct {
	store *database.Service
	audit *audit.Writer
	now   func() time.Time
}

// NewService wires a scoring service. now stamps event and participant rows;
// nil means time.Now.
func NewService(store *database.Service, auditWriter *audit.Writer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, audit: auditWriter, now: now}
}
