package api

import "net/http"

// handleGetLeaderboard is the public overview: every cluster's total points,
// highest first.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.scoring.ComputeLeaderboard()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"leaderboard": toLeaderboardResponse(entries)})
}

func (s *Server) handleGetClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.scoring.ListClusters()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"clusters": toClusterResponseList(clusters)})
}
