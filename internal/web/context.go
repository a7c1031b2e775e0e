package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/campaign/internal/auth"
	"github.com/JonMunkholm/campaign/internal/core"
)

// WithRequestMetadata adds the signed-in staff member, IP and User-Agent to
// ctx for grid ownership and audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	md := core.RequestMetadata{
		IPAddress: r.RemoteAddr, // Already processed by TrustedRealIP
		UserAgent: r.Header.Get("User-Agent"),
	}
	if staff, ok := auth.StaffFromContext(ctx); ok {
		md.Actor = staff.Email
	}
	return core.ContextWithMetadata(ctx, md)
}

// requestMetadata applies WithRequestMetadata to every request.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestMetadata(r.Context(), r)))
	})
}
