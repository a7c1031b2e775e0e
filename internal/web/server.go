// Package web provides the HTTP server and handlers for the registration UI
// and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/campaign/internal/auth"
	"github.com/JonMunkholm/campaign/internal/config"
	"github.com/JonMunkholm/campaign/internal/core"
	mw "github.com/JonMunkholm/campaign/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP server for the registration application.
type Server struct {
	service *core.Service
	auth    *auth.Authenticator
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	general *ipLimiter
	submit  *ipLimiter
	login   *ipLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, authenticator *auth.Authenticator, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		auth:    authenticator,
		cfg:     cfg,
		router:  chi.NewRouter(),
		general: newIPLimiter(cfg.Rate.RequestsPerMinute),
		submit:  newIPLimiter(cfg.Rate.SubmitPerMinute),
		login:   newIPLimiter(cfg.Rate.LoginPerMinute),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// Security hardening
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.general.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Ops
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// Public pages
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
		r.Get("/login", s.handleLoginPage)
		r.With(s.rateLimit(s.login)).Post("/login", s.handleLogin)
	})

	// Everything else requires a signed-in staff member
	s.router.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(s.auth.Sessions()))
		r.Use(requestMetadata)

		r.Post("/logout", s.handleLogout)

		// Submission runs outlive the request timeout
		r.With(s.rateLimit(s.submit)).Post("/api/grids/{gridID}/submit", s.handleSubmit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			// Pages
			r.Get("/", http.RedirectHandler("/voters/bulk", http.StatusFound).ServeHTTP)
			r.Get("/voters/bulk", s.handleBulkPage)

			// Grid sessions
			r.Post("/api/grids", s.handleCreateGrid)
			r.Get("/api/grids/{gridID}", s.handleGridState)
			r.Put("/api/grids/{gridID}/rows/{rowID}/{field}", s.handleEditField)
			r.Post("/api/grids/{gridID}/rows/{rowID}/activate", s.handleActivate)
			r.Post("/api/grids/{gridID}/rows/{rowID}/deactivate", s.handleDeactivate)
			r.Post("/api/grids/{gridID}/rows/{rowID}/temporary-identifier", s.handleTemporaryIdentifier)
			r.Post("/api/grids/{gridID}/rows/{rowID}/default-contact", s.handleDefaultContact)
			r.Post("/api/grids/{gridID}/confirmation/confirm", s.handleConfirmDeactivate)
			r.Post("/api/grids/{gridID}/confirmation/cancel", s.handleCancelDeactivate)
			r.Get("/api/grids/{gridID}/runs/{runID}", s.handleRunHistory)

			// Reference data
			r.Get("/api/leaders", s.handleListLeaders)
			r.Post("/api/leaders/refresh", s.handleRefreshLeaders)
			r.Get("/api/leaders/{leaderID}", s.handleLeaderDetail)
			r.Get("/api/voters/{identifier}", s.handleLookupVoter)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.general.stop()
	s.submit.stop()
	s.login.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness and the submission slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"grids":       s.service.GridCount(),
		"submissions": s.service.SubmissionStatus(),
		"time":        time.Now().UTC(),
	})
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		if s.cfg.Security.EnableCSP {
			// htmx is loaded from unpkg
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimit applies l to a single route, unless rate limiting is disabled.
func (s *Server) rateLimit(l *ipLimiter) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.middleware
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
