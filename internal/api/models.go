package api

import (
	"path"
	"time"

	"github.com/intermernet/scoreboard/internal/audit"
	"github.com/intermernet/scoreboard/internal/auth"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/scoring"
)

const logoURLPrefix = "/static/images/clusters/"

func logoURL(file string) string {
	return logoURLPrefix + path.Base(file)
}

// UserResponse is the DTO for an account. The password hash never leaves the
// server.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(user *database.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func toUserResponseList(users []*database.User) []UserResponse {
	responseList := make([]UserResponse, len(users))
	for i, user := range users {
		responseList[i] = toUserResponse(user)
	}
	return responseList
}

// LeaderboardEntryResponse is one row of the public leaderboard.
type LeaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	ClusterID   int64  `json:"clusterId"`
	ClusterName string `json:"clusterName"`
	LogoURL     string `json:"logoUrl"`
	TotalPoints int64  `json:"totalPoints"`
}

func toLeaderboardResponse(entries []scoring.LeaderboardEntry) []LeaderboardEntryResponse {
	responseList := make([]LeaderboardEntryResponse, len(entries))
	for i, e := range entries {
		responseList[i] = LeaderboardEntryResponse{
			Rank:        e.Rank,
			ClusterID:   e.ClusterID,
			ClusterName: e.ClusterName,
			LogoURL:     logoURL(e.LogoFile),
			TotalPoints: e.TotalPoints,
		}
	}
	return responseList
}

type ClusterResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl"`
}

func toClusterResponseList(clusters []*database.Cluster) []ClusterResponse {
	responseList := make([]ClusterResponse, len(clusters))
	for i, c := range clusters {
		responseList[i] = ClusterResponse{ID: c.ID, Name: c.Name, LogoURL: logoURL(c.LogoFile())}
	}
	return responseList
}

// EventResponse is the DTO for an event. The creator fields are null once
// the creating account has been deleted.
type EventResponse struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	CreatedBy        *int64    `json:"createdBy"`
	CreatorName      *string   `json:"creatorName"`
	ParticipantCount int       `json:"participantCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toEventResponse(event *database.Event) EventResponse {
	var createdBy *int64
	var creatorName *string
	if event.CreatedBy.Valid {
		createdBy = &event.CreatedBy.Int64
	}
	if event.CreatorName.Valid {
		creatorName = &event.CreatorName.String
	}

	return EventResponse{
		ID:               event.ID,
		Name:             event.Name,
		CreatedBy:        createdBy,
		CreatorName:      creatorName,
		ParticipantCount: event.ParticipantCount,
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
	}
}

func toEventResponseList(events []*database.Event) []EventResponse {
	responseList := make([]EventResponse, len(events))
	for i, event := range events {
		responseList[i] = toEventResponse(event)
	}
	return responseList
}

type ParticipantResponse struct {
	ID          int64  `json:"id"`
	ClusterID   int64  `json:"clusterId"`
	ClusterName string `json:"clusterName"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Points      int    `json:"points"`
}

func toParticipantResponseList(participants []*database.Participant) []ParticipantResponse {
	responseList := make([]ParticipantResponse, len(participants))
	for i, p := range participants {
		responseList[i] = ParticipantResponse{
			ID:          p.ID,
			ClusterID:   p.ClusterID,
			ClusterName: p.ClusterName,
			Name:        p.Name,
			Position:    p.Position,
			Points:      p.Points,
		}
	}
	return responseList
}

type ClusterGroupResponse struct {
	ClusterID    int64                 `json:"clusterId"`
	ClusterName  string                `json:"clusterName"`
	Participants []ParticipantResponse `json:"participants"`
}

// EventDetailResponse is an event with its participants, both flat and
// grouped by cluster.
type EventDetailResponse struct {
	EventResponse
	Participants []ParticipantResponse  `json:"participants"`
	ByCluster    []ClusterGroupResponse `json:"byCluster"`
}

func toEventDetailResponse(d *scoring.EventDetail) EventDetailResponse {
	groups := make([]ClusterGroupResponse, len(d.ByCluster))
	for i, g := range d.ByCluster {
		groups[i] = ClusterGroupResponse{
			ClusterID:    g.ClusterID,
			ClusterName:  g.ClusterName,
			Participants: toParticipantResponseList(g.Participants),
		}
	}
	return EventDetailResponse{
		EventResponse: toEventResponse(d.Event),
		Participants:  toParticipantResponseList(d.Participants),
		ByCluster:     groups,
	}
}

// LogEntryResponse is one audit entry with its details decoded.
type LogEntryResponse struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"userId"`
	Username  *string       `json:"username"`
	Action    audit.Action  `json:"action"`
	Details   audit.Details `json:"details"`
	Timestamp time.Time     `json:"timestamp"`
}

func toLogEntryResponseList(entries []audit.Entry) []LogEntryResponse {
	responseList := make([]LogEntryResponse, len(entries))
	for i, e := range entries {
		var username *string
		if e.Username != "" {
			name := e.Username
			username = &name
		}
		responseList[i] = LogEntryResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Username:  username,
			Action:    e.Action,
			Details:   audit.DecodeDetails(e),
			Timestamp: e.Timestamp,
		}
	}
	return responseList
}
