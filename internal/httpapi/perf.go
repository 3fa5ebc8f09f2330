package httpapi

import "net/http"

func (s *Server) handlePerfTurns(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("reset") == "1" {
		s.metrics.ResetTurnStages()
	}
	respondJSON(w, http.StatusOK, s.metrics.TurnStages())
}
