package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
	ctxKeyActor     contextKey = "audit_actor"
)

// RequestMetadata is who did something and from where, as recorded in the
// audit log and on registered voters.
type RequestMetadata struct {
	Actor     string
	IPAddress string
	UserAgent string
}

// ContextWithMetadata stores request metadata on ctx.
func ContextWithMetadata(ctx context.Context, md RequestMetadata) context.Context {
	ctx = context.WithValue(ctx, ctxKeyActor, md.Actor)
	ctx = context.WithValue(ctx, ctxKeyIPAddress, md.IPAddress)
	return context.WithValue(ctx, ctxKeyUserAgent, md.UserAgent)
}

// MetadataFromContext returns the metadata stored by ContextWithMetadata.
// Missing values are empty.
func MetadataFromContext(ctx context.Context) RequestMetadata {
	str := func(k contextKey) string {
		v, _ := ctx.Value(k).(string)
		return v
	}
	return RequestMetadata{
		Actor:     str(ctxKeyActor),
		IPAddress: str(ctxKeyIPAddress),
		UserAgent: str(ctxKeyUserAgent),
	}
}
