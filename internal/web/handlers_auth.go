package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/campaign/internal/auth"
	"github.com/JonMunkholm/campaign/internal/core"
	"github.com/JonMunkholm/campaign/internal/logging"
	"github.com/JonMunkholm/campaign/internal/web/templates"
)

// handleLoginPage renders the sign-in form, or skips it for a live session.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Sessions().Get(auth.TokenFromRequest(r)); err == nil {
		http.Redirect(w, r, "/voters/bulk", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.LoginPage("", "").Render(r.Context(), w)
}

// handleLogin verifies the submitted credentials and opens a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondStatus(w, r, err, http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	ctx := WithRequestMetadata(r.Context(), r)

	sess, err := s.auth.Login(ctx, email, r.PostFormValue("password"))
	if err != nil {
		s.service.RecordLogin(ctx, email, false)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.respondError(w, r, err)
			return
		}
		msg := core.MapError(err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		templates.LoginPage(email, msg.Message).Render(ctx, w)
		return
	}

	s.service.RecordLogin(ctx, sess.Staff.Email, true)
	logging.FromContext(ctx).Info("staff signed in", "staff_id", sess.Staff.ID)

	auth.SetCookie(w, sess, s.cfg.Security.CookieSecure)
	http.Redirect(w, r, "/voters/bulk", http.StatusSeeOther)
}

// handleLogout closes the session and returns to the sign-in form.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(auth.TokenFromRequest(r))
	auth.ClearCookie(w, s.cfg.Security.CookieSecure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
