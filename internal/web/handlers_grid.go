package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/campaign/internal/bulk"
	"github.com/JonMunkholm/campaign/internal/core"
	"github.com/JonMunkholm/campaign/internal/logging"
	"github.com/JonMunkholm/campaign/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// handleBulkPage renders the registration page for the grid in the grid
// cookie, opening a new grid when the cookie is missing or stale.
func (s *Server) handleBulkPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var view core.GridView
	err := core.ErrGridNotFound
	if c, cerr := r.Cookie(gridCookie); cerr == nil {
		view, err = s.service.GridState(ctx, c.Value)
	}
	if errors.Is(err, core.ErrGridNotFound) {
		view, err = s.service.CreateGrid(ctx)
		if err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     gridCookie,
				Value:    view.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Security.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.BulkPage(staffName(r), view, s.leaderGroups(r)).Render(ctx, w)
}

// handleCreateGrid opens a new grid session.
func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.CreateGrid(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		s.renderGrid(w, r, view, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, view)
}

// handleGridState returns the rows, stats and pending confirmation.
func (s *Server) handleGridState(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GridState(r.Context(), chi.URLParam(r, "gridID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		s.renderGrid(w, r, view, nil)
		return
	}
	writeJSON(w, view)
}

// handleRunHistory returns the audit trail of one submission run.
func (s *Server) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.RunHistory(r.Context(), chi.URLParam(r, "gridID"), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

// handleEditField sets one field of one row.
func (s *Server) handleEditField(w http.ResponseWriter, r *http.Request) {
	gridID := chi.URLParam(r, "gridID")
	rowID, err := parseRowID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	value, err := fieldValue(w, r)
	if err != nil {
		respondStatus(w, r, err, http.StatusBadRequest)
		return
	}

	row, err := s.service.EditField(r.Context(), gridID, rowID, chi.URLParam(r, "field"), value)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondGrid(w, r, gridID, row, nil)
}

// handleActivate ticks a row's checkbox.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.rowAction(w, r, s.service.Activate)
}

// handleTemporaryIdentifier fills a random 4-digit identifier.
func (s *Server) handleTemporaryIdentifier(w http.ResponseWriter, r *http.Request) {
	s.rowAction(w, r, s.service.TemporaryIdentifier)
}

// handleDefaultContact fills the fallback contact number.
func (s *Server) handleDefaultContact(w http.ResponseWriter, r *http.Request) {
	s.rowAction(w, r, s.service.DefaultContact)
}

type rowOp func(ctx context.Context, gridID string, rowID int) (bulk.Row, error)

func (s *Server) rowAction(w http.ResponseWriter, r *http.Request, op rowOp) {
	gridID := chi.URLParam(r, "gridID")
	rowID, err := parseRowID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	row, err := op(r.Context(), gridID, rowID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondGrid(w, r, gridID, row, nil)
}

// DeactivateResponse is the JSON answer to an uncheck. Pending means the row
// holds data and the staff member must confirm or cancel.
type DeactivateResponse struct {
	RowID   int  `json:"rowId"`
	Pending bool `json:"pending"`
}

// handleDeactivate unticks a row's checkbox.
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	gridID := chi.URLParam(r, "gridID")
	rowID, err := parseRowID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	pending, err := s.service.RequestDeactivate(r.Context(), gridID, rowID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondGrid(w, r, gridID, DeactivateResponse{RowID: rowID, Pending: pending}, nil)
}

// handleConfirmDeactivate clears the row awaiting confirmation.
func (s *Server) handleConfirmDeactivate(w http.ResponseWriter, r *http.Request) {
	gridID := chi.URLParam(r, "gridID")
	row, err := s.service.ConfirmDeactivate(r.Context(), gridID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondGrid(w, r, gridID, row, nil)
}

// handleCancelDeactivate keeps the row and drops the confirmation.
func (s *Server) handleCancelDeactivate(w http.ResponseWriter, r *http.Request) {
	gridID := chi.URLParam(r, "gridID")
	if err := s.service.CancelDeactivate(r.Context(), gridID); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondGrid(w, r, gridID, nil, nil)
}

// SubmitResponse is the JSON answer to a submission run.
type SubmitResponse struct {
	Report        bulk.Report         `json:"report"`
	Notifications []bulk.Notification `json:"notifications"`
	Grid          core.GridView       `json:"grid"`
}

// handleSubmit runs a submission over the grid and reports every outcome.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	gridID := chi.URLParam(r, "gridID")
	logger := logging.WithFields(r.Context(), "grid_id", gridID)
	logger.Info("submission requested")

	report, err := s.service.Submit(r.Context(), gridID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	notes := report.Notifications()

	view, err := s.service.GridState(r.Context(), gridID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		s.renderGrid(w, r, view, notes)
		return
	}

	status := http.StatusOK
	if report.Status == bulk.StatusInProgress {
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, SubmitResponse{Report: report, Notifications: notes, Grid: view})
}
