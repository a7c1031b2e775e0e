package web

// handlers_common.go holds helpers shared by the handlers.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/campaign/internal/bulk"
	"github.com/JonMunkholm/campaign/internal/core"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/JonMunkholm/campaign/internal/logging"
	"github.com/JonMunkholm/campaign/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// gridCookie remembers the grid bound to the bulk registration page.
const gridCookie = "grid_id"

// maxValueBody bounds a field edit body.
const maxValueBody = 4 << 10

// parseRowID reads the {rowID} URL parameter.
func parseRowID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "rowID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidRowID, raw)
	}
	return id, nil
}

// fieldValue reads the edited value from a JSON body {"value": "..."} or a
// form field named value, which is what the grid inputs send.
func fieldValue(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxValueBody)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode value: %w", err)
		}
		return body.Value, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("parse form: %w", err)
	}
	return r.PostFormValue("value"), nil
}

// leaderGroups loads the leader picker options. A failure is logged and the
// grid renders with an empty picker.
func (s *Server) leaderGroups(r *http.Request) []leaders.Group {
	groups, err := s.service.ListLeaders(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn("leader list unavailable", "error", err)
		return nil
	}
	return groups
}

// respondGrid answers a grid mutation. HTMX requests get the re-rendered grid
// partial; everyone else gets payload as JSON.
func (s *Server) respondGrid(w http.ResponseWriter, r *http.Request, gridID string, payload any, notes []bulk.Notification) {
	if !isHTMX(r) {
		writeJSON(w, payload)
		return
	}
	view, err := s.service.GridState(r.Context(), gridID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderGrid(w, r, view, notes)
}

func (s *Server) renderGrid(w http.ResponseWriter, r *http.Request, view core.GridView, notes []bulk.Notification) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Grid(view, s.leaderGroups(r), notes).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render grid", "error", err)
	}
}

func staffName(r *http.Request) string {
	md := core.MetadataFromContext(r.Context())
	return md.Actor
}
