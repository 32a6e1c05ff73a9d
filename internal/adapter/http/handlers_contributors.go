package adapthttp

import (
	"net/http"
)

func (s *Server) handleContributors(w http.ResponseWriter, r *http.Request) {
	display, err := s.contributors.ContributorsForDisplay(r.Context(), s.exclusionsFile, true, true)
	if err != nil {
		s.log.Error().Err(err).Msg("contributors display")
		writeErrorCode(w, http.StatusServiceUnavailable, "contributors_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contributors": display})
}
