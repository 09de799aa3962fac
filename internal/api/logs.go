package api

import "net/http"

// handleListLogs returns the audit trail, newest first.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.audit.List(s.db.DB())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"logs": toLogEntryResponseList(entries)})
}
