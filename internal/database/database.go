package database

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/intermernet/scoreboard/internal/log"

	_ "modernc.org/sqlite" // The pure Go SQLite driver
)

// Service owns the SQLite connection pool. Reads go straight to DB(); every
// write goes through WriteTx, which serialises writers and runs the callback
// in a single transaction.
type Service struct {
	path    string
	db      *sql.DB
	writeMu sync.Mutex
}

// NewService opens (creating if needed) the database file at path.
func NewService(path string) (*Service, error) {
	// Pragmas are applied per connection by the driver. Foreign keys must be on
	// for the participants -> events reference to be enforced.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to %s: %w", path, err)
	}

	return &Service{path: path, db: db}, nil
}

// Path returns the database file path.
func (s *Service) Path() string {
	return s.path
}

// DB returns the connection pool for read queries.
func (s *Service) DB() *sql.DB {
	return s.db
}

// WriteTx runs writeFunc inside a transaction. If writeFunc returns an error
// the transaction is rolled back and that error is returned unchanged, so
// callers can still match it with errors.Is/As.
func (s *Service) WriteTx(writeFunc func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := writeFunc(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Service) Close() error {
	logger := log.WithComponent("database")
	if err := s.db.Close(); err != nil {
		logger.Error().Err(err).Msg("closing database")
		return err
	}
	logger.Info().Str("path", s.path).Msg("database closed")
	return nil
}

// schema is applied by InitSchema. Every statement is idempotent.
//
// participants.event_id deliberately has no ON DELETE CASCADE: the event
// service removes an event's participants itself before deleting the event.
// activity_logs.user_id has no foreign key so that removing an account never
// blocks or rewrites the audit trail.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'event_manager')),
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS clusters (
		id INTEGER PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		logo_filename TEXT,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		created_by INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (created_by) REFERENCES users (id) ON DELETE SET NULL
	);`,
	`CREATE TABLE IF NOT EXISTS participants (
		id INTEGER PRIMARY KEY,
		event_id INTEGER NOT NULL,
		cluster_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL CHECK (position >= 1),
		points INTEGER NOT NULL CHECK (points >= 0),
		created_at DATETIME NOT NULL,
		FOREIGN KEY (event_id) REFERENCES events (id),
		FOREIGN KEY (cluster_id) REFERENCES clusters (id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_participants_event ON participants (event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_participants_cluster ON participants (cluster_id);`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON activity_logs (timestamp);`,
}

// InitSchema creates the tables if they don't exist. Safe to run on every
// start.
func (s *Service) InitSchema() error {
	return s.WriteTx(func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
