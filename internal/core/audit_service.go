package core

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/campaign/internal/bulk"
	db "github.com/JonMunkholm/campaign/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// AuditService writes and reads the audit_log table.
type AuditService struct {
	q *db.Queries
}

// NewAuditService creates an audit service over conn.
func NewAuditService(conn db.DBTX) *AuditService {
	return &AuditService{q: db.New(conn)}
}

// Log creates a new audit log entry.
func (a *AuditService) Log(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	params = withMetadata(ctx, params)

	insertParams := db.InsertAuditLogParams{
		Action:       string(params.Action),
		Severity:     string(auditSeverity(params.Action)),
		GridID:       toPgUUID(params.GridID),
		RowID:        toPgInt4(params.RowID),
		Identifier:   toPgText(params.Identifier),
		Actor:        toPgText(params.Actor),
		UserAgent:    toPgText(params.UserAgent),
		Reason:       toPgText(params.Reason),
		RowsAffected: toPgInt4(params.RowsAffected),
		RunID:        toPgUUID(params.RunID),
		IpAddress:    parseIP(params.IPAddress),
	}

	row, err := a.q.InsertAuditLog(ctx, insertParams)
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return auditRowToEntry(row), nil
}

// ListRun returns the entries written for one submission run, oldest first.
func (a *AuditService) ListRun(ctx context.Context, runID string) ([]AuditEntry, error) {
	rows, err := a.q.ListAuditLogByRun(ctx, toPgUUID(runID))
	if err != nil {
		return nil, err
	}
	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *auditRowToEntry(row))
	}
	return entries, nil
}

// Purge deletes entries older than retentionDays.
func (a *AuditService) Purge(ctx context.Context, retentionDays int) (int64, error) {
	return a.q.PurgeAuditLogs(ctx, int32(retentionDays))
}

func outcomeParams(gridID, runID string, row bulk.Row, out bulk.Outcome) AuditLogParams {
	p := AuditLogParams{
		GridID:     gridID,
		RowID:      row.ID,
		Identifier: row.Identifier,
		RunID:      runID,
		Reason:     out.Reason,
	}
	switch out.Kind {
	case bulk.OutcomeSuccess:
		p.Action = ActionVoterRegistered
		p.RowsAffected = 1
	case bulk.OutcomeRejected:
		p.Action = ActionVoterRejected
	default:
		p.Action = ActionRegistrationFault
	}
	return p
}

// parseIP strips a port if present. Unparseable input is stored as NULL.
func parseIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return nil
	}
	return &addr
}

func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt4(i int) pgtype.Int4 {
	if i == 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func auditRowToEntry(row db.AuditLog) *AuditEntry {
	entry := &AuditEntry{
		ID:        uuidToString(row.ID),
		Action:    AuditAction(row.Action),
		Severity:  AuditSeverity(row.Severity),
		GridID:    uuidToString(row.GridID),
		RunID:     uuidToString(row.RunID),
		CreatedAt: row.CreatedAt.Time,
	}
	if row.RowID.Valid {
		entry.RowID = int(row.RowID.Int32)
	}
	if row.Identifier.Valid {
		entry.Identifier = row.Identifier.String
	}
	if row.Actor.Valid {
		entry.Actor = row.Actor.String
	}
	if row.IpAddress != nil {
		entry.IPAddress = row.IpAddress.String()
	}
	if row.UserAgent.Valid {
		entry.UserAgent = row.UserAgent.String
	}
	if row.Reason.Valid {
		entry.Reason = row.Reason.String
	}
	if row.RowsAffected.Valid {
		entry.RowsAffected = int(row.RowsAffected.Int32)
	}
	return entry
}
