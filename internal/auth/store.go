package auth

import (
	"context"
	"errors"
	"fmt"

	db "github.com/JonMunkholm/campaign/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailTaken is returned by CreateAccount for an email already in use.
var ErrEmailTaken = errors.New("email already registered")

// DBStore is the Postgres CredentialStore.
type DBStore struct {
	q *db.Queries
}

// NewDBStore creates a store over the staff table.
func NewDBStore(conn db.DBTX) *DBStore {
	return &DBStore{q: db.New(conn)}
}

// AccountByEmail implements CredentialStore.
func (s *DBStore) AccountByEmail(ctx context.Context, email string) (Account, error) {
	row, err := s.q.GetStaffByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return Account{
		Staff: Staff{
			ID:    uuid.UUID(row.ID.Bytes).String(),
			Email: row.Email,
			Name:  row.Name,
		},
		PasswordHash: row.PasswordHash,
		Active:       row.Active,
	}, nil
}

// CreateAccount stores a new staff account with a hashed password.
func (s *DBStore) CreateAccount(ctx context.Context, email, name, password string) (Staff, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Staff{}, err
	}
	row, err := s.q.CreateStaff(ctx, db.CreateStaffParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Staff{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return Staff{}, fmt.Errorf("create staff: %w", err)
	}
	return Staff{
		ID:    uuid.UUID(row.ID.Bytes).String(),
		Email: row.Email,
		Name:  row.Name,
	}, nil
}
