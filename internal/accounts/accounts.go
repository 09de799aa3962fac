// Package accounts handles sign-in and the admin-managed event manager
// accounts.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/intermernet/scoreboard/internal/apperr"
	"github.com/intermernet/scoreboard/internal/audit"
	"github.com/intermernet/scoreboard/internal/auth"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown username
// or a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

type Service struct {
	store *database.Service
	audit *audit.Writer
	now   func() time.Time
}

func NewService(store *database.Service, auditWriter *audit.Writer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, audit: auditWriter, now: now}
}

// Authenticate checks a username and password.
func (s *Service) Authenticate(username, password string) (*database.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("please provide both username and password")
	}

	user, err := s.store.GetUserByUsername(s.store.DB(), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns the account with id.
func (s *Service) GetUser(id int64) (*database.User, error) {
	user, err := s.store.GetUserByID(s.store.DB(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return user, nil
}

// ListManagers returns the event manager accounts ordered by username.
func (s *Service) ListManagers() ([]*database.User, error) {
	users, err := s.store.ListUsersByRole(s.store.DB(), auth.RoleEventManager)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	return users, nil
}

// CreateManager adds an event manager account.
func (s *Service) CreateManager(actor auth.Actor, username, password string) (*database.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Permission("only admins can manage accounts")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *database.User
	err = s.store.WriteTx(func(tx *sql.Tx) error {
		if err := s.requireUniqueUsername(tx, username, 0); err != nil {
			return err
		}
		u, err := s.store.CreateUser(tx, username, hash, auth.RoleEventManager, s.now())
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		user = u
		return s.audit.Record(tx, actor, audit.CreateManager{Username: u.Username, ManagerID: u.ID})
	})
	if err != nil {
		return nil, err
	}

	logger := log.WithComponent("accounts")
	logger.Info().Int64("manager_id", user.ID).Str("username", user.Username).Msg("manager created")
	return user, nil
}

// UpdateManager renames an event manager and, when password is non-empty,
// resets their password.
func (s *Service) UpdateManager(actor auth.Actor, id int64, username, password string) (*database.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Permission("only admins can manage accounts")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}

	var hash string
	if password != "" {
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	var user *database.User
	err := s.store.WriteTx(func(tx *sql.Tx) error {
		existing, err := s.requireManager(tx, id, "edit")
		if err != nil {
			return err
		}
		if err := s.requireUniqueUsername(tx, username, id); err != nil {
			return err
		}
		if err := s.store.UpdateUser(tx, id, username, hash); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if user, err = s.store.GetUserByID(tx, id); err != nil {
			return err
		}
		return s.audit.Record(tx, actor, audit.EditManager{
			Username:        username,
			ManagerID:       id,
			OldUsername:     existing.Username,
			PasswordChanged: hash != "",
		})
	})
	if err != nil {
		return nil, err
	}

	logger := log.WithComponent("accounts")
	logger.Info().Int64("manager_id", id).Msg("manager updated")
	return user, nil
}

// DeleteManager removes an event manager account. Events they created stay,
// with no creator.
func (s *Service) DeleteManager(actor auth.Actor, id int64) error {
	if !actor.IsAdmin() {
		return apperr.Permission("only admins can manage accounts")
	}

	err := s.store.WriteTx(func(tx *sql.Tx) error {
		existing, err := s.requireManager(tx, id, "delete")
		if err != nil {
			return err
		}
		if err := s.store.DeleteUser(tx, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return s.audit.Record(tx, actor, audit.DeleteManager{Username: existing.Username, ManagerID: id})
	})
	if err != nil {
		return err
	}

	logger := log.WithComponent("accounts")
	logger.Info().Int64("manager_id", id).Msg("manager deleted")
	return nil
}

func (s *Service) requireManager(db database.DBorTx, id int64, verb string) (*database.User, error) {
	user, err := s.store.GetUserByID(db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	if user.Role != auth.RoleEventManager {
		return nil, apperr.Permission("cannot %s non-event manager accounts", verb)
	}
	return user, nil
}

func (s *Service) requireUniqueUsername(db database.DBorTx, username string, excludeID int64) error {
	taken, err := s.store.UsernameTaken(db, username, excludeID)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return apperr.Validation("username already exists")
	}
	return nil
}
