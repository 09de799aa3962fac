package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/intermernet/scoreboard/internal/auth"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
)

// Entry is one stored audit row.
type Entry struct {
	ID        int64
	UserID    int64
	Username  string // empty once the account has been deleted
	Action    Action
	Details   sql.NullString
	Timestamp time.Time
}

// Writer appends to and reads the audit trail.
type Writer struct {
	store *database.Service
	now   func() time.Time
}

// NewWriter returns a Writer stamping entries with now, or time.Now when nil.
func NewWriter(store *database.Service, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{store: store, now: now}
}

// Record appends one entry attributed to actor. Pass the transaction that
// performs the change so the entry commits or rolls back with it. Anonymous
// actors are not recorded.
func (w *Writer) Record(db database.DBorTx, actor auth.Actor, d Details) error {
	if actor.Anonymous() {
		return nil
	}

	text, err := encodeDetails(d)
	if err != nil {
		return fmt.Errorf("encode %s details: %w", d.Action(), err)
	}

	id, err := w.store.InsertActivityLog(db, actor.UserID, string(d.Action()), sql.NullString{String: text, Valid: true}, w.now())
	if err != nil {
		return fmt.Errorf("record %s: %w", d.Action(), err)
	}

	logger := log.WithComponent("audit")
	logger.Debug().
		Int64("log_id", id).
		Int64("user_id", actor.UserID).
		Str("action", string(d.Action())).
		Msg("recorded")
	return nil
}

// List returns every entry, newest first.
func (w *Writer) List(db database.DBorTx) ([]Entry, error) {
	rows, err := w.store.ListActivityLogs(db)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			ID:        r.ID,
			UserID:    r.UserID,
			Username:  r.Username.String,
			Action:    Action(r.Action),
			Details:   r.Details,
			Timestamp: r.Timestamp,
		})
	}
	return entries, nil
}
