package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const registerVoter = `-- name: RegisterVoter :one
SELECT register_voter($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type RegisterVoterParams struct {
	Ci           string
	Nombre       string
	Apellido     string
	Telefono     string
	Sexo         string
	Edad         int32
	Barrio       string
	LiderID      string
	RegisteredBy string
}

// RegisterVoterData is the votantes row serialised by register_voter.
type RegisterVoterData struct {
	ID           string    `json:"id"`
	Ci           string    `json:"ci"`
	Nombre       string    `json:"nombre"`
	Apellido     string    `json:"apellido"`
	Telefono     *string   `json:"telefono"`
	Sexo         *string   `json:"sexo"`
	Edad         *int32    `json:"edad"`
	Barrio       *string   `json:"barrio"`
	LiderID      *string   `json:"lider_id"`
	RegisteredBy *string   `json:"registered_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterVoterResult is the jsonb envelope returned by register_voter.
type RegisterVoterResult struct {
	Success bool               `json:"success"`
	Data    *RegisterVoterData `json:"data"`
	Error   string             `json:"error"`
}

func (q *Queries) RegisterVoter(ctx context.Context, arg RegisterVoterParams) (RegisterVoterResult, error) {
	row := q.db.QueryRow(ctx, registerVoter,
		arg.Ci,
		arg.Nombre,
		arg.Apellido,
		arg.Telefono,
		arg.Sexo,
		arg.Edad,
		arg.Barrio,
		arg.LiderID,
		arg.RegisteredBy,
	)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return RegisterVoterResult{}, err
	}
	var res RegisterVoterResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return RegisterVoterResult{}, fmt.Errorf("decode register_voter result: %w", err)
	}
	return res, nil
}

const getVoterByCI = `-- name: GetVoterByCI :one
SELECT id, ci, nombre, apellido, telefono, sexo, edad, barrio, lider_id,
       registered_by, created_at, updated_at, updated_by
FROM votantes
WHERE ci = $1
`

func (q *Queries) GetVoterByCI(ctx context.Context, ci string) (Voter, error) {
	row := q.db.QueryRow(ctx, getVoterByCI, ci)
	var i Voter
	err := row.Scan(
		&i.ID,
		&i.Ci,
		&i.Nombre,
		&i.Apellido,
		&i.Telefono,
		&i.Sexo,
		&i.Edad,
		&i.Barrio,
		&i.LiderID,
		&i.RegisteredBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.UpdatedBy,
	)
	return i, err
}

const countVotersByLeader = `-- name: CountVotersByLeader :one
SELECT COUNT(*) FROM votantes WHERE lider_id = $1
`

func (q *Queries) CountVotersByLeader(ctx context.Context, liderID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countVotersByLeader, liderID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
