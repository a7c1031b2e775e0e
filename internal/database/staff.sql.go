package database

import "context"

const createStaff = `-- name: CreateStaff :one
INSERT INTO staff (email, name, password_hash)
VALUES ($1, $2, $3)
RETURNING id, email, name, password_hash, active, created_at
`

type CreateStaffParams struct {
	Email        string
	Name         string
	PasswordHash string
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, createStaff, arg.Email, arg.Name, arg.PasswordHash)
	var i Staff
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Active,
		&i.CreatedAt,
	)
	return i, err
}

const getStaffByEmail = `-- name: GetStaffByEmail :one
SELECT id, email, name, password_hash, active, created_at
FROM staff
WHERE lower(email) = lower($1)
`

func (q *Queries) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	row := q.db.QueryRow(ctx, getStaffByEmail, email)
	var i Staff
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Active,
		&i.CreatedAt,
	)
	return i, err
}
