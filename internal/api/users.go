package api

import (
	"net/http"
)

// handleGetMyProfile returns the signed-in account.
func (s *Server) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.GetUser(actorFromContext(r).UserID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"user": toUserResponse(user)})
}
