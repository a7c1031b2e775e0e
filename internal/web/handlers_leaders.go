package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleListLeaders returns the active leaders grouped by candidate.
func (s *Server) handleListLeaders(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.ListLeaders(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, groups)
}

// handleRefreshLeaders reloads the leader list. A failed reload is an error,
// never the stale list.
func (s *Server) handleRefreshLeaders(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.RefreshLeaders(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, groups)
}

// handleLeaderDetail returns one active leader and their registered count.
func (s *Server) handleLeaderDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.LeaderDetail(r.Context(), chi.URLParam(r, "leaderID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, detail)
}

// handleLookupVoter finds a registered voter by identifier.
func (s *Server) handleLookupVoter(w http.ResponseWriter, r *http.Request) {
	identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
	voter, err := s.service.LookupVoter(r.Context(), identifier)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, voter)
}
