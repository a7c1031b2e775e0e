package database

import (
	"context"
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `-- name: InsertAuditLog :one
INSERT INTO audit_log (
    action, severity, grid_id, row_id, identifier, actor,
    ip_address, user_agent, reason, rows_affected, run_id
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING id, action, severity, grid_id, row_id, identifier, actor,
    ip_address, user_agent, reason, rows_affected, run_id, created_at
`

type InsertAuditLogParams struct {
	Action       string
	Severity     string
	GridID       pgtype.UUID
	RowID        pgtype.Int4
	Identifier   pgtype.Text
	Actor        pgtype.Text
	IpAddress    *netip.Addr
	UserAgent    pgtype.Text
	Reason       pgtype.Text
	RowsAffected pgtype.Int4
	RunID        pgtype.UUID
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error) {
	row := q.db.QueryRow(ctx, insertAuditLog,
		arg.Action,
		arg.Severity,
		arg.GridID,
		arg.RowID,
		arg.Identifier,
		arg.Actor,
		arg.IpAddress,
		arg.UserAgent,
		arg.Reason,
		arg.RowsAffected,
		arg.RunID,
	)
	var i AuditLog
	err := scanAuditLog(row, &i)
	return i, err
}

const listAuditLogByRun = `-- name: ListAuditLogByRun :many
SELECT id, action, severity, grid_id, row_id, identifier, actor,
    ip_address, user_agent, reason, rows_affected, run_id, created_at
FROM audit_log
WHERE run_id = $1
ORDER BY created_at, row_id
`

func (q *Queries) ListAuditLogByRun(ctx context.Context, runID pgtype.UUID) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogByRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var i AuditLog
		if err := scanAuditLog(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const purgeAuditLogs = `-- name: PurgeAuditLogs :execrows
DELETE FROM audit_log
WHERE created_at < now() - make_interval(days => $1::int)
`

func (q *Queries) PurgeAuditLogs(ctx context.Context, days int32) (int64, error) {
	result, err := q.db.Exec(ctx, purgeAuditLogs, days)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditLog(row rowScanner, i *AuditLog) error {
	return row.Scan(
		&i.ID,
		&i.Action,
		&i.Severity,
		&i.GridID,
		&i.RowID,
		&i.Identifier,
		&i.Actor,
		&i.IpAddress,
		&i.UserAgent,
		&i.Reason,
		&i.RowsAffected,
		&i.RunID,
		&i.CreatedAt,
	)
}
