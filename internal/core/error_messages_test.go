package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/campaign/internal/auth"
	"github.com/JonMunkholm/campaign/internal/bulk"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{"nil error returns empty", nil, "", ""},
		{"grid not found", fmt.Errorf("load grid: %w", ErrGridNotFound), "GRID001", "This registration grid is no longer available"},
		{"unknown row", fmt.Errorf("%w: %d", bulk.ErrUnknownRow, 11), "GRID002", ""},
		{"unknown field", bulk.ErrUnknownField, "GRID003", ""},
		{"nothing to confirm", fmt.Errorf("%w %d", bulk.ErrNoPendingConfirmation, 2), "GRID004", ""},
		{"edit while submitting", bulk.ErrSubmissionInProgress, "GRID005", ""},
		{"no run slot", ErrTooManySubmissions, "GRID006", ""},
		{"unknown run", fmt.Errorf("%w: 9c1f", ErrRunNotFound), "GRID007", ""},
		{"leader lookup", fmt.Errorf("%w: x", leaders.ErrNotFound), "VAL002", ""},
		{"voter lookup", ErrVoterNotFound, "VAL003", ""},
		{"bad credentials", auth.ErrInvalidCredentials, "AUTH001", ""},
		{"expired session", auth.ErrNoSession, "AUTH002", ""},
		{"duplicate key text", errors.New(`ERROR: duplicate key value violates unique constraint "votantes_ci_key"`), "DB001", "This voter is already registered"},
		{"foreign key text", errors.New(`insert or update on table "votantes" violates foreign key constraint`), "DB002", ""},
		{"unique violation sqlstate", &pgconn.PgError{Code: "23505", Message: "conflict"}, "DB001", ""},
		{"wrapped fk sqlstate", fmt.Errorf("register: %w", &pgconn.PgError{Code: "23503"}), "DB002", ""},
		{"deadlock sqlstate", &pgconn.PgError{Code: "40P01"}, "DB006", ""},
		{"unlisted sqlstate falls back to text", &pgconn.PgError{Code: "22001", Message: "rate limit on column"}, "RATE001", ""},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "DB003", "Unable to connect to database"},
		{"call timeout", fmt.Errorf("register 3: %w", context.DeadlineExceeded), "DB005", ""},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001", ""},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000", "An unexpected error occurred"},
		{"case insensitive matching", errors.New("DUPLICATE KEY value violates"), "DB001", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(errors.New("dial tcp: connection refused"))

	expected := "Unable to connect to database (Code: DB003). Please try again in a few moments"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrGridNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := errors.New("duplicate key value")
	userErr := NewUserError(techErr)
	if userErr.Error() != "This voter is already registered" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, techErr) {
		t.Error("Unwrap() should return original error")
	}
}
