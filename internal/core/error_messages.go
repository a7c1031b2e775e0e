package core

// error_messages.go maps technical errors to messages staff can act on.
//
// Every message carries a code that staff can quote to support. Codes are
// grouped by category:
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: the voter is already registered
//	DB002 - Foreign key: the referenced leader does not exist
//	DB003 - Connection refused: the database is unreachable
//	DB004 - Connection reset: the connection dropped mid-request
//	DB005 - Timeout: the operation took too long
//	DB006 - Deadlock: conflicting concurrent writes
//
// # Grid Errors (GRID001-GRID099)
//
//	GRID001 - Grid not found: the grid expired or belongs to someone else
//	GRID002 - Row not found: row id outside the grid
//	GRID003 - Unknown field: the column name is not editable
//	GRID004 - Nothing to confirm: no deactivation is pending for the row
//	GRID005 - Submission running: the grid is locked until the run ends
//	GRID006 - System busy: every submission slot is taken
//	GRID007 - Run not found: the grid has no submission run with that id
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid row id: the row id is not a number
//	VAL002 - Leader not found: the leader is unknown or inactive
//	VAL003 - Voter not found: no voter has that identifier
//
// # Authentication Errors (AUTH001-AUTH099)
//
//	AUTH001 - Invalid credentials
//	AUTH002 - Session expired
//	AUTH003 - Email already registered
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Returned when nothing matches. The technical error is in the logs.
//
// Postgres errors are classified by SQLSTATE first. Everything else is
// matched case-insensitively against the error text and the first pattern
// that matches wins, so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

const (
	actionReload      = "Reload the page and try again"
	actionRetry       = "Please try again"
	actionPickLeader  = "Refresh the leader list and pick another leader"
	actionResubmitRun = "Submit again; rows already registered were cleared"
)

var (
	msgGridNotFound   = UserMessage{"This registration grid is no longer available", "Reload the page to start a new grid", "GRID001"}
	msgRowNotFound    = UserMessage{"That row does not exist in the grid", actionReload, "GRID002"}
	msgUnknownField   = UserMessage{"That column cannot be edited", actionReload, "GRID003"}
	msgNoPending      = UserMessage{"There is nothing to confirm for this row", "Uncheck the row again to clear it", "GRID004"}
	msgSubmitting     = UserMessage{"The grid is being submitted", "Wait for the submission to finish before editing", "GRID005"}
	msgBusy           = UserMessage{"The system is busy registering other grids", "Please wait a moment and submit again", "GRID006"}
	msgRunNotFound    = UserMessage{"No submission run with that id exists for this grid", "Use the run id from the submission report", "GRID007"}
	msgInvalidRowID   = UserMessage{"The row id is not valid", actionReload, "VAL001"}
	msgLeaderNotFound = UserMessage{"The selected leader is not available", actionPickLeader, "VAL002"}
	msgVoterNotFound  = UserMessage{"No voter is registered with that identifier", "Check the identifier and search again", "VAL003"}
	msgBadLogin       = UserMessage{"Email or password is incorrect", "Check your credentials and sign in again", "AUTH001"}
	msgSessionExpired = UserMessage{"Your session has expired", "Sign in again", "AUTH002"}
	msgEmailTaken     = UserMessage{"A staff account with this email already exists", "Use a different email address", "AUTH003"}
	msgDuplicateVoter = UserMessage{"This voter is already registered", "Look the voter up by identifier before registering", "DB001"}
	msgMissingLeader  = UserMessage{"The referenced leader does not exist", actionPickLeader, "DB002"}
	msgUnreachable    = UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB003"}
	msgConnReset      = UserMessage{"Database connection was interrupted", actionRetry, "DB004"}
	msgTimeout        = UserMessage{"Operation timed out", actionResubmitRun, "DB005"}
	msgDeadlock       = UserMessage{"Database was busy with conflicting operations", actionRetry, "DB006"}
	msgRateLimited    = UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}

	defaultMessage = UserMessage{"An unexpected error occurred", "Please try again or contact support", "ERR000"}
)

// sqlStates maps Postgres SQLSTATE codes to messages.
var sqlStates = map[string]UserMessage{
	"23505": msgDuplicateVoter, // unique_violation
	"23503": msgMissingLeader,  // foreign_key_violation
	"40P01": msgDeadlock,       // deadlock_detected
	"57014": msgTimeout,        // query_canceled
}

// errorPatterns is ordered: grid sentinels first, transport failures last.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"grid not found", msgGridNotFound},
	{"row not found", msgRowNotFound},
	{"unknown field", msgUnknownField},
	{"no pending deactivation", msgNoPending},
	{"submission in progress", msgSubmitting},
	{"too many concurrent submissions", msgBusy},
	{"run not found", msgRunNotFound},

	{"invalid row id", msgInvalidRowID},
	{"leader not found", msgLeaderNotFound},
	{"voter not found", msgVoterNotFound},

	{"invalid credentials", msgBadLogin},
	{"session not found", msgSessionExpired},
	{"email already registered", msgEmailTaken},

	{"duplicate key", msgDuplicateVoter},
	{"violates foreign key", msgMissingLeader},
	{"connection refused", msgUnreachable},
	{"connection reset", msgConnReset},
	{"deadline exceeded", msgTimeout},
	{"timeout", msgTimeout},
	{"deadlock", msgDeadlock},

	{"rate limit", msgRateLimited},
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := sqlStates[pgErr.Code]; ok {
			return msg
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}

	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to anything but the default message.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }

func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
