package core

import (
	"context"
	"time"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionGridCreated       AuditAction = "grid_created"
	ActionRowCleared        AuditAction = "row_cleared"
	ActionSubmissionRun     AuditAction = "submission_run"
	ActionVoterRegistered   AuditAction = "voter_registered"
	ActionVoterRejected     AuditAction = "voter_rejected"
	ActionRegistrationFault AuditAction = "registration_fault"
	ActionLeadersRefreshed  AuditAction = "leaders_refreshed"
	ActionLogin             AuditAction = "login"
	ActionLoginFailed       AuditAction = "login_failed"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	GridID       string        `json:"gridId,omitempty"`
	RowID        int           `json:"rowId,omitempty"`
	Identifier   string        `json:"identifier,omitempty"`
	Actor        string        `json:"actor,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	RunID        string        `json:"runId,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// Actor, IPAddress and UserAgent default to the request metadata on the
// context when empty.
type AuditLogParams struct {
	Action       AuditAction
	GridID       string
	RowID        int
	Identifier   string
	Actor        string
	IPAddress    string
	UserAgent    string
	Reason       string
	RowsAffected int
	RunID        string
}

// Auditor records audit entries.
type Auditor interface {
	Log(ctx context.Context, params AuditLogParams) (*AuditEntry, error)
}

// auditSeverity returns the severity for an action.
func auditSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionRegistrationFault, ActionLoginFailed:
		return SeverityHigh
	case ActionSubmissionRun, ActionVoterRegistered, ActionVoterRejected, ActionRowCleared:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// withMetadata fills empty who/where fields from the request context.
func withMetadata(ctx context.Context, p AuditLogParams) AuditLogParams {
	md := MetadataFromContext(ctx)
	if p.Actor == "" {
		p.Actor = md.Actor
	}
	if p.IPAddress == "" {
		p.IPAddress = md.IPAddress
	}
	if p.UserAgent == "" {
		p.UserAgent = md.UserAgent
	}
	return p
}

// discardAuditor drops every entry. Used when no database is configured.
type discardAuditor struct{}

func (discardAuditor) Log(ctx context.Context, p AuditLogParams) (*AuditEntry, error) {
	p = withMetadata(ctx, p)
	return &AuditEntry{
		Action:       p.Action,
		Severity:     auditSeverity(p.Action),
		GridID:       p.GridID,
		RowID:        p.RowID,
		Identifier:   p.Identifier,
		Actor:        p.Actor,
		Reason:       p.Reason,
		RowsAffected: p.RowsAffected,
		RunID:        p.RunID,
		CreatedAt:    time.Now(),
	}, nil
}
