package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/intermernet/scoreboard/internal/scoring"
)

// --- Structs for JSON Payloads ---

// formValue accepts a JSON string or number and keeps its text, so that
// numeric validation happens in one place (scoring.ParseRows) whatever the
// client sent.
type formValue string

func (v *formValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = formValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", b)
	}
	*v = formValue(n.String())
	return nil
}

type participantPayload struct {
	ClusterID formValue `json:"clusterId"`
	Name      formValue `json:"name"`
	Position  formValue `json:"position"`
	Points    formValue `json:"points"`
}

// eventPayload is the create/edit body.
type eventPayload struct {
	Name         string               `json:"name"`
	Participants []participantPayload `json:"participants"`
}

// decodeEventPayload reads an event submission. JSON bodies use eventPayload;
// form bodies carry event_name plus the parallel lists cluster_id[],
// participant_name[], position[] and points[], zipped by index.
func decodeEventPayload(r *http.Request) (string, []scoring.ParticipantRow, error) {
	if isJSON(r) {
		var payload eventPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return "", nil, errors.New("bad request: could not decode JSON")
		}
		rows := make([]scoring.ParticipantRow, len(payload.Participants))
		for i, p := range payload.Participants {
			rows[i] = scoring.ParticipantRow{
				ClusterID: string(p.ClusterID),
				Name:      string(p.Name),
				Position:  string(p.Position),
				Points:    string(p.Points),
			}
		}
		return payload.Name, rows, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", nil, errors.New("bad request: could not parse form")
	}
	clusterIDs := r.PostForm["cluster_id[]"]
	names := r.PostForm["participant_name[]"]
	positions := r.PostForm["position[]"]
	points := r.PostForm["points[]"]

	at := func(list []string, i int) string {
		if i < len(list) {
			return list[i]
		}
		return ""
	}
	rows := make([]scoring.ParticipantRow, len(clusterIDs))
	for i := range clusterIDs {
		rows[i] = scoring.ParticipantRow{
			ClusterID: clusterIDs[i],
			Name:      at(names, i),
			Position:  at(positions, i),
			Points:    at(points, i),
		}
	}
	return r.PostFormValue("event_name"), rows, nil
}

func parseEventID(r *http.Request) (int64, error) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid event ID")
	}
	return eventID, nil
}

// --- HTTP Handlers ---

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.scoring.ListEvents()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"events": toEventResponseList(events)})
}

// handleGetEvent returns one event with its participants.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	detail, err := s.scoring.GetEvent(eventID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"event": toEventDetailResponse(detail)})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	name, rows, err := decodeEventPayload(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	eventID, err := s.scoring.CreateEvent(actorFromContext(r), name, rows)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	detail, err := s.scoring.GetEvent(eventID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"event": toEventDetailResponse(detail)})
}

// handleUpdateEvent replaces an event's name and all of its participants.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	name, rows, err := decodeEventPayload(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	if err := s.scoring.EditEvent(actorFromContext(r), eventID, name, rows); err != nil {
		s.serviceError(w, r, err)
		return
	}

	detail, err := s.scoring.GetEvent(eventID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"event": toEventDetailResponse(detail)})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseEventID(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	if err := s.scoring.DeleteEvent(actorFromContext(r), eventID); err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "event deleted successfully"})
}
