package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/intermernet/scoreboard/internal/auth"
)

// User represents a record in the 'users' table.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Actor converts the account into the identity passed to service calls.
func (u *User) Actor() auth.Actor {
	return auth.Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// Cluster represents a record in the 'clusters' table.
type Cluster struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	LogoFilename sql.NullString `json:"-"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// LogoFile returns the cluster's logo file name, falling back to the
// lowercased cluster name when none was stored.
func (c *Cluster) LogoFile() string {
	if c.LogoFilename.Valid && c.LogoFilename.String != "" {
		return c.LogoFilename.String
	}
	return strings.ToLower(c.Name) + ".png"
}

// Event represents a record in the 'events' table.
type Event struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	CreatedBy sql.NullInt64 `json:"-"` // NULL once the creator account is deleted
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	// Populated by ListEvents/GetEventByID joins, not columns of 'events'.
	CreatorName      sql.NullString `json:"-"`
	ParticipantCount int            `json:"participantCount"`
}

// Participant represents a record in the 'participants' table.
type Participant struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"eventId"`
	ClusterID int64     `json:"clusterId"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"createdAt"`

	// Joined from 'clusters'.
	ClusterName string `json:"clusterName"`
}

// ActivityLog represents a record in the append-only 'activity_logs' table.
type ActivityLog struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"userId"`
	Action    string         `json:"action"`
	Details   sql.NullString `json:"-"`
	Timestamp time.Time      `json:"timestamp"`

	// Joined from 'users'; NULL when the account no longer exists.
	Username sql.NullString `json:"-"`
}

// ClusterTotal is one row of the per-cluster points aggregation.
type ClusterTotal struct {
	Cluster
	TotalPoints int64
}
