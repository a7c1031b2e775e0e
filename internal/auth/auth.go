// Package auth authenticates campaign staff.
//
// Staff sign in with email and password; passwords are stored as bcrypt
// hashes. A successful login opens a server-side session identified by an
// opaque cookie token. The signed-in staff member travels on the request
// context and is recorded as the registrant of every voter they submit.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown email, a wrong
	// password or a disabled account. Callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotFound is returned by a CredentialStore for an unknown email.
	ErrAccountNotFound = errors.New("account not found")
)

// MinPasswordLength is enforced when hashing new passwords.
const MinPasswordLength = 8

// Staff identifies a signed-in staff member.
type Staff struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Account is a stored staff account.
type Account struct {
	Staff
	PasswordHash string
	Active       bool
}

// CredentialStore looks up staff accounts by email.
type CredentialStore interface {
	AccountByEmail(ctx context.Context, email string) (Account, error)
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// dummyHash is compared against when the account does not exist so that
// unknown emails cost the same as wrong passwords.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi5BXa8kRZBrZ.3YiQZxg1VzWFr6U5e")

// Authenticator verifies credentials and opens sessions.
type Authenticator struct {
	store    CredentialStore
	sessions *Sessions
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(store CredentialStore, sessions *Sessions) *Authenticator {
	return &Authenticator{store: store, sessions: sessions}
}

// Sessions returns the session store backing the authenticator.
func (a *Authenticator) Sessions() *Sessions {
	return a.sessions
}

// Login verifies email and password and opens a session.
func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	acct, err := a.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !acct.Active {
		return Session{}, ErrInvalidCredentials
	}

	return a.sessions.Create(acct.Staff), nil
}

// Logout closes the session identified by token.
func (a *Authenticator) Logout(token string) {
	a.sessions.Delete(token)
}

type staffKey struct{}

// WithStaff returns a copy of ctx carrying the signed-in staff member.
func WithStaff(ctx context.Context, s Staff) context.Context {
	return context.WithValue(ctx, staffKey{}, s)
}

// StaffFromContext returns the signed-in staff member, if any.
func StaffFromContext(ctx context.Context) (Staff, bool) {
	s, ok := ctx.Value(staffKey{}).(Staff)
	return s, ok
}
