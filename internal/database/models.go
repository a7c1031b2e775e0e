package database

import (
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

type AuditLog struct {
	ID           pgtype.UUID
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
	CreatedAt    pgtype.Timestamptz
}

// Leader maps the lideres table.
type Leader struct {
	ID        pgtype.UUID
	Ci        pgtype.Text
	Nombre    string
	Apellido  string
	Telefono  pgtype.Text
	Candidato string
	Activo    bool
	CreatedAt pgtype.Timestamptz
}

type Staff struct {
	ID           pgtype.UUID
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	CreatedAt    pgtype.Timestamptz
}

// Voter maps the votantes table.
type Voter struct {
	ID           pgtype.UUID
	Ci           string
	Nombre       string
	Apellido     string
	Telefono     pgtype.Text
	Sexo         pgtype.Text
	Edad         pgtype.Int4
	Barrio       pgtype.Text
	LiderID      pgtype.UUID
	RegisteredBy pgtype.Text
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
	UpdatedBy    pgtype.Text
}
