package bulk

import (
	"context"
	"fmt"
	"time"
)

// VoterRecord is the payload sent to the registrar for one row.
type VoterRecord struct {
	Identifier   string
	GivenName    string
	FamilyName   string
	Contact      string
	Sex          string
	Age          int
	Locality     string
	LeaderID     string
	RegisteredBy string
}

// SavedVoter is the voter as stored by the registrar.
type SavedVoter struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"`
	GivenName    string    `json:"givenName"`
	FamilyName   string    `json:"familyName"`
	Contact      string    `json:"contact"`
	Sex          string    `json:"sex"`
	Age          int       `json:"age"`
	Locality     string    `json:"locality"`
	LeaderID     string    `json:"leaderId"`
	RegisteredBy string    `json:"registeredBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateResult is the application-level answer of the registrar.
// Success=false carries the server-provided reason in Error.
type CreateResult struct {
	Success bool
	Voter   *SavedVoter
	Error   string
}

// Registrar creates a single voter. A non-nil error means the call itself
// failed (transport, database, timeout); an application-level rejection is
// reported through CreateResult with a nil error.
type Registrar interface {
	CreateVoter(ctx context.Context, rec VoterRecord) (CreateResult, error)
}

// RegistrarFunc adapts a function to Registrar.
type RegistrarFunc func(ctx context.Context, rec VoterRecord) (CreateResult, error)

func (f RegistrarFunc) CreateVoter(ctx context.Context, rec VoterRecord) (CreateResult, error) {
	return f(ctx, rec)
}

// OutcomeKind tags an Outcome.
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFault    OutcomeKind = "fault"
)

// Outcome is the result of one registrar call, folded into a tagged value:
// Success carries the saved voter, Rejected and Fault carry a reason.
type Outcome struct {
	Kind   OutcomeKind
	Voter  *SavedVoter
	Reason string
}

const unknownRejection = "unknown error registering voter"

// Classify folds a registrar result into an Outcome. describe renders fault
// errors for users; nil uses err.Error().
func Classify(res CreateResult, err error, describe func(error) string) Outcome {
	if err != nil {
		if describe == nil {
			return Outcome{Kind: OutcomeFault, Reason: err.Error()}
		}
		return Outcome{Kind: OutcomeFault, Reason: describe(err)}
	}
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = unknownRejection
		}
		return Outcome{Kind: OutcomeRejected, Reason: reason}
	}
	return Outcome{Kind: OutcomeSuccess, Voter: res.Voter}
}

// callRegistrar invokes r once and converts a panic into a fault.
func callRegistrar(ctx context.Context, r Registrar, rec VoterRecord) (res CreateResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = CreateResult{}
			err = fmt.Errorf("registrar panic: %v", p)
		}
	}()
	return r.CreateVoter(ctx, rec)
}
