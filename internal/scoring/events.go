package scoring

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
	"github.com/intermernet/scoreboard/internal/metrics"
)

// ClusterGroup is the participants of one event that belong to one cluster.
type ClusterGroup struct {
	ClusterID    int64
	ClusterName  string
	Participants []*database.Participant
}

// EventDetail is an event with its participants, both in insertion order and
// grouped by cluster in order of first appearance.
type EventDetail struct {
	Event        *database.Event
	Participants []*database.Participant
	ByCluster    []ClusterGroup
}

// CreateEvent validates name and rows, then stores the event, its
// participants and a create_event audit entry in one transaction. Nothing is
// stored if any step fails.
func (s *Service) CreateEvent(actor auth.Actor, name string, rows []ParticipantRow) (eventID int64, err error) {
	defer func() { s.observe(audit.ActionCreateEvent, err) }()

	name, participants, err := validateSubmission(name, rows)
	if err != nil {
		return 0, err
	}

	now := s.now()
	err = s.store.WriteTx(func(tx *sql.Tx) error {
		if err := s.requireCreator(tx, actor); err != nil {
			return err
		}
		if err := s.requireClusters(tx, rows, participants); err != nil {
			return err
		}

		id, err := s.store.CreateEvent(tx, name, actor.UserID, now)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := s.insertParticipants(tx, id, participants, now); err != nil {
			return err
		}

		eventID = id
		return s.audit.Record(tx, actor, audit.CreateEvent{
			EventName:        name,
			EventID:          id,
			ParticipantCount: len(participants),
		})
	})
	if err != nil {
		return 0, err
	}

	logger := log.WithComponent("scoring")
	logger.Info().
		Int64("event_id", eventID).
		Int("participants", len(participants)).
		Int64("user_id", actor.UserID).
		Msg("event created")
	return eventID, nil
}

// EditEvent renames an event and replaces its whole participant set.
func (s *Service) EditEvent(actor auth.Actor, eventID int64, name string, rows []ParticipantRow) (err error) {
	defer func() { s.observe(audit.ActionEditEvent, err) }()

	// A missing event is reported before anything about the submission.
	if _, err := s.getEvent(s.store.DB(), eventID); err != nil {
		return err
	}
	name, participants, err := validateSubmission(name, rows)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.store.WriteTx(func(tx *sql.Tx) error {
		event, err := s.getEvent(tx, eventID)
		if err != nil {
			return err
		}
		if err := s.requireClusters(tx, rows, participants); err != nil {
			return err
		}

		if _, err := s.store.DeleteParticipantsByEventID(tx, eventID); err != nil {
			return fmt.Errorf("clear participants: %w", err)
		}
		if err := s.insertParticipants(tx, eventID, participants, now); err != nil {
			return err
		}
		if err := s.store.UpdateEventName(tx, eventID, name, now); err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		return s.audit.Record(tx, actor, audit.EditEvent{
			EventName:        name,
			EventID:          eventID,
			OldName:          event.Name,
			ParticipantCount: len(participants),
		})
	})
	if err != nil {
		return err
	}

	logger := log.WithComponent("scoring")
	logger.Info().
		Int64("event_id", eventID).
		Int("participants", len(participants)).
		Int64("user_id", actor.UserID).
		Msg("event edited")
	return nil
}

// DeleteEvent removes an event together with its participants.
func (s *Service) DeleteEvent(actor auth.Actor, eventID int64) (err error) {
	defer func() { s.observe(audit.ActionDeleteEvent, err) }()

	var removed int64
	err = s.store.WriteTx(func(tx *sql.Tx) error {
		event, err := s.getEvent(tx, eventID)
		if err != nil {
			return err
		}

		removed, err = s.store.DeleteParticipantsByEventID(tx, eventID)
		if err != nil {
			return fmt.Errorf("delete participants: %w", err)
		}
		if err := s.store.DeleteEvent(tx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}

		return s.audit.Record(tx, actor, audit.DeleteEvent{
			EventName: event.Name,
			EventID:   eventID,
		})
	})
	if err != nil {
		return err
	}

	logger := log.WithComponent("scoring")
	logger.Info().
		Int64("event_id", eventID).
		Int64("participants_removed", removed).
		Int64("user_id", actor.UserID).
		Msg("event deleted")
	return nil
}

// ListEvents returns every event, newest first.
func (s *Service) ListEvents() ([]*database.Event, error) {
	events, err := s.store.ListEvents(s.store.DB())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEvent returns an event with its participants.
func (s *Service) GetEvent(eventID int64) (*EventDetail, error) {
	db := s.store.DB()
	event, err := s.getEvent(db, eventID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.GetParticipantsByEventID(db, eventID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	return &EventDetail{
		Event:        event,
		Participants: participants,
		ByCluster:    groupByCluster(participants),
	}, nil
}

// ListClusters returns every cluster ordered by name.
func (s *Service) ListClusters() ([]*database.Cluster, error) {
	clusters, err := s.store.ListClusters(s.store.DB())
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	return clusters, nil
}

func validateSubmission(name string, rows []ParticipantRow) (string, []Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, apperr.Validation("event name is required")
	}
	participants, err := ParseRows(rows)
	if err != nil {
		return "", nil, err
	}
	if len(participants) == 0 {
		return "", nil, apperr.Validation("at least one participant required")
	}
	return name, participants, nil
}

func (s *Service) getEvent(db database.DBorTx, eventID int64) (*database.Event, error) {
	event, err := s.store.GetEventByID(db, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event %d not found", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}
	return event, nil
}

func (s *Service) requireCreator(db database.DBorTx, actor auth.Actor) error {
	if actor.Anonymous() {
		return apperr.Validation("event creator is required")
	}
	_, err := s.store.GetUserByID(db, actor.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Validation("event creator %d does not exist", actor.UserID)
	}
	return err
}

// requireClusters checks every participant's cluster exists. rows is only
// used to report the submitted row number.
func (s *Service) requireClusters(db database.DBorTx, rows []ParticipantRow, participants []Participant) error {
	known, err := s.store.ClusterIDs(db)
	if err != nil {
		return fmt.Errorf("load clusters: %w", err)
	}

	p := 0
	for i, r := range rows {
		if r.blank() {
			continue
		}
		if _, ok := known[participants[p].ClusterID]; !ok {
			return apperr.Validation("row %d: unknown cluster %d", i+1, participants[p].ClusterID)
		}
		p++
	}
	return nil
}

func (s *Service) insertParticipants(tx *sql.Tx, eventID int64, participants []Participant, now time.Time) error {
	for _, p := range participants {
		row := &database.Participant{
			EventID:   eventID,
			ClusterID: p.ClusterID,
			Name:      p.Name,
			Position:  p.Position,
			Points:    p.Points,
		}
		if _, err := s.store.AddParticipant(tx, row, now); err != nil {
			return fmt.Errorf("insert participant %q: %w", p.Name, err)
		}
	}
	return nil
}

func (s *Service) observe(action audit.Action, err error) {
	if err == nil {
		metrics.EventMutations.WithLabelValues(string(action)).Inc()
		return
	}
	kind := apperr.KindOf(err)
	metrics.EventMutationFailures.WithLabelValues(string(action), kind.String()).Inc()
	if kind == 0 {
		logger := log.WithComponent("scoring")
		logger.Error().Err(err).Str("action", string(action)).Msg("event mutation failed")
	}
}

func groupByCluster(participants []*database.Participant) []ClusterGroup {
	var groups []ClusterGroup
	index := make(map[int64]int)
	for _, p := range participants {
		i, ok := index[p.ClusterID]
		if !ok {
			i = len(groups)
			index[p.ClusterID] = i
			groups = append(groups, ClusterGroup{ClusterID: p.ClusterID, ClusterName: p.ClusterName})
		}
		groups[i].Participants = append(groups[i].Participants, p)
	}
	return groups
}
