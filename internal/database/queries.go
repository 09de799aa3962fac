package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/intermernet/scoreboard/internal/auth"
)

// DBorTx is an interface that allows functions to accept either a `*sql.DB` for single queries
// or a `*sql.Tx` for operations within a transaction.
type DBorTx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// --- User Queries ---

const userColumns = `id, username, password_hash, role, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) CreateUser(db DBorTx, username, passwordHash string, role auth.Role, now time.Time) (*User, error) {
	query := `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?);`
	res, err := db.Exec(query, username, passwordHash, string(role), now.UTC())
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(db, id)
}

// GetUserByID returns sql.ErrNoRows if the account does not exist.
func (s *Service) GetUserByID(db DBorTx, id int64) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?;`, id))
}

func (s *Service) GetUserByUsername(db DBorTx, username string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?;`, username))
}

// ListUsersByRole returns the accounts with the given role ordered by
// username.
func (s *Service) ListUsersByRole(db DBorTx, role auth.Role) ([]*User, error) {
	rows, err := db.Query(`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY username ASC, id ASC;`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UsernameTaken reports whether another account (other than excludeID)
// already uses username.
func (s *Service) UsernameTaken(db DBorTx, username string, excludeID int64) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ? AND id != ?;`, username, excludeID).Scan(&n)
	return n > 0, err
}

// UpdateUser updates a user's username and/or password hash. Empty values
// are left unchanged.
func (s *Service) UpdateUser(db DBorTx, userID int64, username, passwordHash string) error {
	var sets []string
	var args []interface{}
	if username != "" {
		sets = append(sets, "username = ?")
		args = append(args, username)
	}
	if passwordHash != "" {
		sets = append(sets, "password_hash = ?")
		args = append(args, passwordHash)
	}
	if len(sets) == 0 {
		return nil
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE users SET ")
	queryBuilder.WriteString(strings.Join(sets, ", "))
	queryBuilder.WriteString(" WHERE id = ?;")
	args = append(args, userID)

	res, err := db.Exec(queryBuilder.String(), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Service) DeleteUser(db DBorTx, userID int64) error {
	res, err := db.Exec(`DELETE FROM users WHERE id = ?;`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- Cluster Queries ---

func (s *Service) CreateCluster(db DBorTx, name, logoFilename string, now time.Time) (int64, error) {
	var logo interface{} = logoFilename
	if logoFilename == "" {
		logo = nil
	}
	res, err := db.Exec(`INSERT INTO clusters (name, logo_filename, created_at) VALUES (?, ?, ?);`, name, logo, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListClusters returns every cluster ordered by name.
func (s *Service) ListClusters(db DBorTx) ([]*Cluster, error) {
	rows, err := db.Query(`SELECT id, name, logo_filename, created_at FROM clusters ORDER BY name ASC, id ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []*Cluster
	for rows.Next() {
		c := &Cluster{}
		if err := rows.Scan(&c.ID, &c.Name, &c.LogoFilename, &c.CreatedAt); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// ClusterIDs returns the set of existing cluster ids.
func (s *Service) ClusterIDs(db DBorTx) (map[int64]struct{}, error) {
	rows, err := db.Query(`SELECT id FROM clusters;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ClusterTotals sums participant points per cluster. Every cluster appears,
// with zero when it has no participants. Ordered by total descending, then
// name, then id.
func (s *Service) ClusterTotals(db DBorTx) ([]ClusterTotal, error) {
	query := `
		SELECT c.id, c.name, c.logo_filename, c.created_at, COALESCE(SUM(p.points), 0) AS total_points
		FROM clusters c
		LEFT JOIN participants p ON p.cluster_id = c.id
		GROUP BY c.id, c.name, c.logo_filename, c.created_at
		ORDER BY total_points DESC, c.name ASC, c.id ASC;`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []ClusterTotal
	for rows.Next() {
		var t ClusterTotal
		if err := rows.Scan(&t.ID, &t.Name, &t.LogoFilename, &t.CreatedAt, &t.TotalPoints); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// --- Event Queries ---

const eventSelect = `
	SELECT e.id, e.name, e.created_by, e.created_at, e.updated_at, u.username,
		(SELECT COUNT(*) FROM participants p WHERE p.event_id = e.id)
	FROM events e
	LEFT JOIN users u ON u.id = e.created_by`

func scanEvent(row interface{ Scan(...interface{}) error }) (*Event, error) {
	e := &Event{}
	err := row.Scan(&e.ID, &e.Name, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.CreatorName, &e.ParticipantCount)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) CreateEvent(db DBorTx, name string, createdBy int64, now time.Time) (int64, error) {
	now = now.UTC()
	res, err := db.Exec(`INSERT INTO events (name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?);`,
		name, createdBy, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetEventByID returns sql.ErrNoRows if the event does not exist.
func (s *Service) GetEventByID(db DBorTx, id int64) (*Event, error) {
	return scanEvent(db.QueryRow(eventSelect+` WHERE e.id = ?;`, id))
}

// ListEvents returns all events, newest first.
func (s *Service) ListEvents(db DBorTx) ([]*Event, error) {
	rows, err := db.Query(eventSelect + ` ORDER BY e.created_at DESC, e.id DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Service) UpdateEventName(db DBorTx, eventID int64, name string, now time.Time) error {
	res, err := db.Exec(`UPDATE events SET name = ?, updated_at = ? WHERE id = ?;`, name, now.UTC(), eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteEvent removes the event row only. Its participants must already be
// gone or the foreign key rejects the delete.
func (s *Service) DeleteEvent(db DBorTx, eventID int64) error {
	res, err := db.Exec(`DELETE FROM events WHERE id = ?;`, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- Participant Queries ---

func (s *Service) AddParticipant(db DBorTx, p *Participant, now time.Time) (int64, error) {
	query := `INSERT INTO participants (event_id, cluster_id, name, position, points, created_at) VALUES (?, ?, ?, ?, ?, ?);`
	res, err := db.Exec(query, p.EventID, p.ClusterID, p.Name, p.Position, p.Points, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetParticipantsByEventID returns an event's participants in insertion
// order, with their cluster names.
func (s *Service) GetParticipantsByEventID(db DBorTx, eventID int64) ([]*Participant, error) {
	query := `
		SELECT p.id, p.event_id, p.cluster_id, p.name, p.position, p.points, p.created_at, c.name
		FROM participants p
		JOIN clusters c ON c.id = p.cluster_id
		WHERE p.event_id = ?
		ORDER BY p.id ASC;`
	rows, err := db.Query(query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p := &Participant{}
		if err := rows.Scan(&p.ID, &p.EventID, &p.ClusterID, &p.Name, &p.Position, &p.Points, &p.CreatedAt, &p.ClusterName); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// DeleteParticipantsByEventID removes every participant of an event and
// returns how many were removed.
func (s *Service) DeleteParticipantsByEventID(db DBorTx, eventID int64) (int64, error) {
	res, err := db.Exec(`DELETE FROM participants WHERE event_id = ?;`, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Activity Log Queries ---

func (s *Service) InsertActivityLog(db DBorTx, userID int64, action string, details sql.NullString, ts time.Time) (int64, error) {
	res, err := db.Exec(`INSERT INTO activity_logs (user_id, action, details, timestamp) VALUES (?, ?, ?, ?);`,
		userID, action, details, ts.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListActivityLogs returns the audit trail newest first, joined with the
// actor's current username where the account still exists.
func (s *Service) ListActivityLogs(db DBorTx) ([]*ActivityLog, error) {
	query := `
		SELECT l.id, l.user_id, l.action, l.details, l.timestamp, u.username
		FROM activity_logs l
		LEFT JOIN users u ON u.id = l.user_id
		ORDER BY l.timestamp DESC, l.id DESC;`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*ActivityLog
	for rows.Next() {
		l := &ActivityLog{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Details, &l.Timestamp, &l.Username); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
