package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listActiveLeaders = `-- name: ListActiveLeaders :many
SELECT id, ci, nombre, apellido, telefono, candidato, activo, created_at
FROM lideres
WHERE activo
ORDER BY candidato, nombre
`

func (q *Queries) ListActiveLeaders(ctx context.Context) ([]Leader, error) {
	rows, err := q.db.Query(ctx, listActiveLeaders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Leader
	for rows.Next() {
		var i Leader
		if err := rows.Scan(
			&i.ID,
			&i.Ci,
			&i.Nombre,
			&i.Apellido,
			&i.Telefono,
			&i.Candidato,
			&i.Activo,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertLeader = `-- name: UpsertLeader :one
INSERT INTO lideres (id, ci, nombre, apellido, telefono, candidato, activo)
VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    ci        = EXCLUDED.ci,
    nombre    = EXCLUDED.nombre,
    apellido  = EXCLUDED.apellido,
    telefono  = EXCLUDED.telefono,
    candidato = EXCLUDED.candidato,
    activo    = EXCLUDED.activo
RETURNING id, ci, nombre, apellido, telefono, candidato, activo, created_at
`

type UpsertLeaderParams struct {
	ID        pgtype.UUID
	Ci        pgtype.Text
	Nombre    string
	Apellido  string
	Telefono  pgtype.Text
	Candidato string
	Activo    bool
}

func (q *Queries) UpsertLeader(ctx context.Context, arg UpsertLeaderParams) (Leader, error) {
	row := q.db.QueryRow(ctx, upsertLeader,
		arg.ID,
		arg.Ci,
		arg.Nombre,
		arg.Apellido,
		arg.Telefono,
		arg.Candidato,
		arg.Activo,
	)
	var i Leader
	err := row.Scan(
		&i.ID,
		&i.Ci,
		&i.Nombre,
		&i.Apellido,
		&i.Telefono,
		&i.Candidato,
		&i.Activo,
		&i.CreatedAt,
	)
	return i, err
}
