package core

// history.go reads back what a grid's submissions wrote: the audit trail of
// one run, and how many voters each leader has registered.

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a grid has no audit entries for a run id.
var ErrRunNotFound = errors.New("run not found")

type runLister interface {
	ListRun(ctx context.Context, runID string) ([]AuditEntry, error)
}

type voterCounter interface {
	CountByLeader(ctx context.Context, leaderID string) (int64, error)
}

// RunHistory returns the audit entries one submission run wrote for gridID,
// oldest first. Entries of other grids are never returned, even when the run
// id is known.
func (s *Service) RunHistory(ctx context.Context, gridID, runID string) ([]AuditEntry, error) {
	if _, err := s.session(ctx, gridID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	lister, ok := s.audit.(runLister)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	entries, err := lister.ListRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	out := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		if e.GridID == gridID {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return out, nil
}

// LeaderDetail is an active leader with the number of voters registered
// under them.
type LeaderDetail struct {
	leaders.Leader
	Registered int64 `json:"registered"`
}

// LeaderDetail looks an active leader up in the cached list and counts their
// voters. Without a counting voter store the count is zero.
func (s *Service) LeaderDetail(ctx context.Context, leaderID string) (LeaderDetail, error) {
	l, err := s.leaders.Lookup(ctx, leaderID)
	if err != nil {
		return LeaderDetail{}, err
	}
	detail := LeaderDetail{Leader: l}
	if c, ok := s.voters.(voterCounter); ok {
		n, err := c.CountByLeader(ctx, leaderID)
		if err != nil {
			return LeaderDetail{}, fmt.Errorf("count voters of leader %s: %w", leaderID, err)
		}
		detail.Registered = n
	}
	return detail, nil
}
