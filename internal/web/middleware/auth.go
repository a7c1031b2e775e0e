package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/campaign/internal/auth"
	"github.com/JonMunkholm/campaign/internal/logging"
)

// RequireAuth returns middleware that admits only requests carrying a live
// session cookie. The staff member is stored on the request context.
//
// Page requests without a session are redirected to /login. API requests get
// a 401 JSON body instead, and HTMX requests an HX-Redirect header.
func RequireAuth(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			sess, err := sessions.Get(token)
			if err != nil {
				if token != "" {
					slog.Info("auth: session rejected",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
				}
				unauthorized(w, r)
				return
			}

			ctx := auth.WithStaff(r.Context(), sess.Staff)
			ctx = logging.WithActor(ctx, sess.Staff.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"sign in required","code":"AUTH002"}`))
	default:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
