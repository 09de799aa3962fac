package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// managerPayload is the create/update body. On update an empty password
// leaves the current one unchanged.
type managerPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeManagerPayload(r *http.Request) (managerPayload, error) {
	var payload managerPayload
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return payload, errors.New("bad request: could not decode JSON")
		}
		return payload, nil
	}
	if err := r.ParseForm(); err != nil {
		return payload, errors.New("bad request: could not parse form")
	}
	payload.Username = r.PostFormValue("username")
	payload.Password = r.PostFormValue("password")
	return payload, nil
}

func parseUserID(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid user ID")
	}
	return userID, nil
}

func (s *Server) handleListManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := s.accounts.ListManagers()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"managers": toUserResponseList(managers)})
}

func (s *Server) handleCreateManager(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeManagerPayload(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	user, err := s.accounts.CreateManager(actorFromContext(r), payload.Username, payload.Password)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"manager": toUserResponse(user)})
}

func (s *Server) handleUpdateManager(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	payload, err := decodeManagerPayload(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	user, err := s.accounts.UpdateManager(actorFromContext(r), userID, payload.Username, payload.Password)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"manager": toUserResponse(user)})
}

func (s *Server) handleDeleteManager(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}

	if err := s.accounts.DeleteManager(actorFromContext(r), userID); err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"message": "manager deleted successfully"})
}
