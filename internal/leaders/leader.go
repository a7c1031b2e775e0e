// Package leaders provides the leader reference data used by the registration
// grid: the list of active leaders a voter can be assigned to, grouped by the
// candidate they work for.
package leaders

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Lookup when no active leader has the given id.
var ErrNotFound = errors.New("leader not found")

// Leader is one selectable leader.
type Leader struct {
	ID         string `json:"id" yaml:"id"`
	Identifier string `json:"identifier" yaml:"identifier"`
	GivenName  string `json:"givenName" yaml:"given_name"`
	FamilyName string `json:"familyName" yaml:"family_name"`
	Contact    string `json:"contact,omitempty" yaml:"contact"`
	Candidate  string `json:"candidate" yaml:"candidate"`
	Active     bool   `json:"active" yaml:"active"`
}

// DisplayName is the label shown in the leader picker.
func (l Leader) DisplayName() string {
	return strings.TrimSpace(l.GivenName + " " + l.FamilyName)
}

// Source loads active leaders ordered by candidate, then given name.
type Source interface {
	ListActiveLeaders(ctx context.Context) ([]Leader, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Leader, error)

func (f SourceFunc) ListActiveLeaders(ctx context.Context) ([]Leader, error) {
	return f(ctx)
}

// Group is the set of leaders working for one candidate.
type Group struct {
	Candidate string   `json:"candidate"`
	Leaders   []Leader `json:"leaders"`
}

// GroupByCandidate groups leaders by candidate. Groups appear in the order
// their candidate first occurs and leaders keep their input order.
func GroupByCandidate(list []Leader) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, l := range list {
		i, ok := index[l.Candidate]
		if !ok {
			i = len(groups)
			index[l.Candidate] = i
			groups = append(groups, Group{Candidate: l.Candidate})
		}
		groups[i].Leaders = append(groups[i].Leaders, l)
	}
	return groups
}
