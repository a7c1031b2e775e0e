package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	db "github.com/JonMunkholm/campaign/internal/database"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrVoterNotFound is returned when no voter has the requested identifier.
var ErrVoterNotFound = errors.New("voter not found")

// DBLeaderSource loads leaders from the lideres table.
type DBLeaderSource struct {
	q *db.Queries
}

// NewDBLeaderSource creates a leader source over conn.
func NewDBLeaderSource(conn db.DBTX) *DBLeaderSource {
	return &DBLeaderSource{q: db.New(conn)}
}

// ListActiveLeaders implements leaders.Source.
func (s *DBLeaderSource) ListActiveLeaders(ctx context.Context) ([]leaders.Leader, error) {
	rows, err := s.q.ListActiveLeaders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]leaders.Leader, 0, len(rows))
	for _, r := range rows {
		out = append(out, leaderFromRow(r))
	}
	return out, nil
}

func leaderFromRow(r db.Leader) leaders.Leader {
	return leaders.Leader{
		ID:         uuidToString(r.ID),
		Identifier: textOrEmpty(r.Ci),
		GivenName:  r.Nombre,
		FamilyName: r.Apellido,
		Contact:    textOrEmpty(r.Telefono),
		Candidate:  r.Candidato,
		Active:     r.Activo,
	}
}

// UpsertLeader writes one leader, creating it when l.ID is empty.
func (s *DBLeaderSource) UpsertLeader(ctx context.Context, l leaders.Leader) (leaders.Leader, error) {
	row, err := s.q.UpsertLeader(ctx, db.UpsertLeaderParams{
		ID:        toPgUUID(l.ID),
		Ci:        toPgText(l.Identifier),
		Nombre:    l.GivenName,
		Apellido:  l.FamilyName,
		Telefono:  toPgText(l.Contact),
		Candidato: l.Candidate,
		Activo:    l.Active,
	})
	if err != nil {
		return leaders.Leader{}, fmt.Errorf("upsert leader %q: %w", l.DisplayName(), err)
	}
	return leaderFromRow(row), nil
}

// Voter is a registered voter as returned by the lookup endpoint.
type Voter struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"`
	GivenName    string    `json:"givenName"`
	FamilyName   string    `json:"familyName"`
	Contact      string    `json:"contact,omitempty"`
	Sex          string    `json:"sex,omitempty"`
	Age          int       `json:"age,omitempty"`
	Locality     string    `json:"locality,omitempty"`
	LeaderID     string    `json:"leaderId,omitempty"`
	RegisteredBy string    `json:"registeredBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VoterFinder looks voters up by identifier.
type VoterFinder interface {
	FindVoter(ctx context.Context, identifier string) (Voter, error)
}

// DBVoterFinder reads the votantes table.
type DBVoterFinder struct {
	q *db.Queries
}

// NewDBVoterFinder creates a voter finder over conn.
func NewDBVoterFinder(conn db.DBTX) *DBVoterFinder {
	return &DBVoterFinder{q: db.New(conn)}
}

// FindVoter returns ErrVoterNotFound when no row matches.
func (f *DBVoterFinder) FindVoter(ctx context.Context, identifier string) (Voter, error) {
	row, err := f.q.GetVoterByCI(ctx, identifier)
	if errors.Is(err, pgx.ErrNoRows) {
		return Voter{}, fmt.Errorf("%w: %s", ErrVoterNotFound, identifier)
	}
	if err != nil {
		return Voter{}, fmt.Errorf("get voter: %w", err)
	}
	v := Voter{
		ID:           uuidToString(row.ID),
		Identifier:   row.Ci,
		GivenName:    row.Nombre,
		FamilyName:   row.Apellido,
		Contact:      textOrEmpty(row.Telefono),
		Sex:          textOrEmpty(row.Sexo),
		Locality:     textOrEmpty(row.Barrio),
		LeaderID:     uuidToString(row.LiderID),
		RegisteredBy: textOrEmpty(row.RegisteredBy),
		CreatedAt:    row.CreatedAt.Time,
	}
	if row.Edad.Valid {
		v.Age = int(row.Edad.Int32)
	}
	return v, nil
}

// CountByLeader returns how many voters were registered under leaderID.
func (f *DBVoterFinder) CountByLeader(ctx context.Context, leaderID string) (int64, error) {
	return f.q.CountVotersByLeader(ctx, toPgUUID(leaderID))
}

func textOrEmpty(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
