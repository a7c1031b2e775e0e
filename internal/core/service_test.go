package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/campaign/internal/bulk"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAuditor struct {
	mu      sync.Mutex
	entries []AuditLogParams
	purged  []int
}

func (m *memAuditor) Log(ctx context.Context, p AuditLogParams) (*AuditEntry, error) {
	p = withMetadata(ctx, p)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, p)
	return &AuditEntry{Action: p.Action, Actor: p.Actor}, nil
}

func (m *memAuditor) Purge(ctx context.Context, days int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, days)
	return 3, nil
}

func (m *memAuditor) ListRun(ctx context.Context, runID string) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for _, e := range m.entries {
		if e.RunID != runID {
			continue
		}
		out = append(out, AuditEntry{
			Action:     e.Action,
			GridID:     e.GridID,
			RowID:      e.RowID,
			Identifier: e.Identifier,
			RunID:      e.RunID,
			Actor:      e.Actor,
		})
	}
	return out, nil
}

func (m *memAuditor) actions() []AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditAction, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type sweeper int

func (s sweeper) Sweep() int { return int(s) }

var testLeaders = []leaders.Leader{
	{ID: "l1", GivenName: "Ana", FamilyName: "Ruiz", Candidate: "Gomez", Active: true},
	{ID: "l2", GivenName: "Beto", FamilyName: "Diaz", Candidate: "Perez", Active: true},
	{ID: "l3", GivenName: "Carla", FamilyName: "Sosa", Candidate: "Gomez", Active: true},
}

type testEnv struct {
	svc   *Service
	audit *memAuditor
	now   time.Time
	calls []bulk.VoterRecord
	mu    sync.Mutex
}

func newTestEnv(t *testing.T, reg func(rec bulk.VoterRecord) (bulk.CreateResult, error)) *testEnv {
	t.Helper()
	env := &testEnv{
		audit: &memAuditor{},
		now:   time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
	registrar := bulk.RegistrarFunc(func(ctx context.Context, rec bulk.VoterRecord) (bulk.CreateResult, error) {
		env.mu.Lock()
		env.calls = append(env.calls, rec)
		env.mu.Unlock()
		return reg(rec)
	})
	env.svc = New(Options{
		Registrar: registrar,
		Leaders: leaders.SourceFunc(func(ctx context.Context) ([]leaders.Leader, error) {
			return testLeaders, nil
		}),
		Auditor: env.audit,
		Limiter: NewSubmissionLimiter(2, 20*time.Millisecond),
		Grid: GridSettings{
			Size:    5,
			IdleTTL: 2 * time.Hour,
		},
		Now: func() time.Time { return env.now },
	})
	return env
}

func staffCtx(email string) context.Context {
	return ContextWithMetadata(context.Background(), RequestMetadata{
		Actor:     email,
		IPAddress: "10.0.0.1",
		UserAgent: "test",
	})
}

func fillRow(t *testing.T, svc *Service, ctx context.Context, gridID string, rowID int, identifier string) {
	t.Helper()
	values := map[string]string{
		"identifier":  identifier,
		"given_name":  "juan",
		"family_name": "perez",
		"contact":     "0981123456",
		"leader_id":   "l1",
	}
	for field, value := range values {
		_, err := svc.EditField(ctx, gridID, rowID, field, value)
		require.NoError(t, err)
	}
}

func acceptAll(rec bulk.VoterRecord) (bulk.CreateResult, error) {
	return bulk.CreateResult{Success: true, Voter: &bulk.SavedVoter{Identifier: rec.Identifier}}, nil
}

func TestCreateGrid(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")

	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)
	require.Len(t, view.Rows, 5)
	for i, row := range view.Rows {
		assert.Equal(t, i+1, row.ID)
		assert.False(t, row.Active)
	}
	assert.Equal(t, 5, view.Stats.Total)
	assert.Equal(t, 1, env.svc.GridCount())
	assert.Equal(t, []AuditAction{ActionGridCreated}, env.audit.actions())

	got, err := env.svc.GridState(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)
}

func TestGridOwnership(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	view, err := env.svc.CreateGrid(staffCtx("ana@example.com"))
	require.NoError(t, err)

	_, err = env.svc.GridState(staffCtx("beto@example.com"), view.ID)
	assert.ErrorIs(t, err, ErrGridNotFound)

	_, err = env.svc.GridState(staffCtx("ana@example.com"), "missing")
	assert.ErrorIs(t, err, ErrGridNotFound)
}

func TestEditField_UnknownField(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	_, err = env.svc.EditField(ctx, view.ID, 1, "age", "40")
	assert.ErrorIs(t, err, bulk.ErrUnknownField)

	row, err := env.svc.EditField(ctx, view.ID, 1, "given_name", "Ana")
	require.NoError(t, err)
	assert.True(t, row.Active)
	assert.True(t, row.HasData)
}

func TestDeactivateConfirmation(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	// empty row deactivates immediately
	_, err = env.svc.Activate(ctx, view.ID, 1)
	require.NoError(t, err)
	pending, err := env.svc.RequestDeactivate(ctx, view.ID, 1)
	require.NoError(t, err)
	assert.False(t, pending)

	_, err = env.svc.EditField(ctx, view.ID, 2, "identifier", "123")
	require.NoError(t, err)
	pending, err = env.svc.RequestDeactivate(ctx, view.ID, 2)
	require.NoError(t, err)
	assert.True(t, pending)

	state, err := env.svc.GridState(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.PendingRowID)

	require.NoError(t, env.svc.CancelDeactivate(ctx, view.ID))
	state, err = env.svc.GridState(ctx, view.ID)
	require.NoError(t, err)
	assert.Zero(t, state.PendingRowID)
	assert.Equal(t, "123", state.Rows[1].Identifier)

	_, err = env.svc.RequestDeactivate(ctx, view.ID, 2)
	require.NoError(t, err)
	row, err := env.svc.ConfirmDeactivate(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.NewRow(2), row)

	_, err = env.svc.ConfirmDeactivate(ctx, view.ID)
	assert.ErrorIs(t, err, bulk.ErrNoPendingConfirmation)
	assert.Contains(t, env.audit.actions(), ActionRowCleared)
}

func TestRowHelpers(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	env.svc.settings.DefaultContact = ""
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	row, err := env.svc.TemporaryIdentifier(ctx, view.ID, 3)
	require.NoError(t, err)
	assert.Len(t, row.Identifier, 4)
	assert.True(t, row.Active)

	row, err = env.svc.DefaultContact(ctx, view.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, bulk.DefaultContact, row.Contact)
}

func TestSubmit_RecordsOutcomes(t *testing.T) {
	env := newTestEnv(t, func(rec bulk.VoterRecord) (bulk.CreateResult, error) {
		if rec.Identifier == "222" {
			return bulk.CreateResult{Success: false, Error: "voter already registered"}, nil
		}
		return acceptAll(rec)
	})
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	fillRow(t, env.svc, ctx, view.ID, 1, "111")
	fillRow(t, env.svc, ctx, view.ID, 2, "222")

	report, err := env.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.StatusCompleted, report.Status)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, env.calls, 2)
	assert.Equal(t, "ana@example.com", env.calls[0].RegisteredBy)
	assert.Equal(t, "JUAN", env.calls[0].GivenName)
	assert.Equal(t, bulk.DefaultPlaceholders.Sex, env.calls[0].Sex)

	state, err := env.svc.GridState(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.NewRow(1), state.Rows[0])
	assert.Equal(t, "222", state.Rows[1].Identifier)

	assert.Equal(t, []AuditAction{
		ActionGridCreated,
		ActionVoterRegistered,
		ActionVoterRejected,
		ActionSubmissionRun,
	}, env.audit.actions())

	last := env.audit.entries[len(env.audit.entries)-1]
	assert.Equal(t, report.RunID, last.RunID)
	assert.Equal(t, 1, last.RowsAffected)
	assert.Equal(t, "ana@example.com", last.Actor)
}

func TestSubmit_FaultUsesUserMessage(t *testing.T) {
	env := newTestEnv(t, func(rec bulk.VoterRecord) (bulk.CreateResult, error) {
		return bulk.CreateResult{}, errors.New("dial tcp: connection refused")
	})
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)
	fillRow(t, env.svc, ctx, view.ID, 1, "111")

	report, err := env.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, bulk.OutcomeFault, report.Failures[0].Kind)
	assert.Contains(t, report.Failures[0].Reason, "DB003")
	assert.Contains(t, env.audit.actions(), ActionRegistrationFault)
}

func TestSubmit_NothingToSubmitIsNotAudited(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	report, err := env.svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.StatusNothingToSubmit, report.Status)
	assert.Empty(t, env.calls)
	assert.Equal(t, []AuditAction{ActionGridCreated}, env.audit.actions())
}

func TestSubmit_NoFreeSlot(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	env.svc.limiter = NewSubmissionLimiter(1, 10*time.Millisecond)
	require.True(t, env.svc.limiter.TryAcquire())
	defer env.svc.limiter.Release()

	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)
	fillRow(t, env.svc, ctx, view.ID, 1, "111")

	_, err = env.svc.Submit(ctx, view.ID)
	assert.ErrorIs(t, err, ErrTooManySubmissions)
	assert.Empty(t, env.calls)
}

func TestExpireIdleGrids(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")
	old, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	env.now = env.now.Add(90 * time.Minute)
	fresh, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)

	env.now = env.now.Add(time.Hour)
	assert.Equal(t, 1, env.svc.ExpireIdleGrids())

	_, err = env.svc.GridState(ctx, old.ID)
	assert.ErrorIs(t, err, ErrGridNotFound)
	_, err = env.svc.GridState(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestRunJanitor(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	_, err := env.svc.CreateGrid(staffCtx("ana@example.com"))
	require.NoError(t, err)
	env.now = env.now.Add(3 * time.Hour)

	env.svc.runJanitor(context.Background(), JanitorConfig{RetentionDays: 30, Sessions: sweeper(2)})

	assert.Zero(t, env.svc.GridCount())
	assert.Equal(t, []int{30}, env.audit.purged)
}

func TestLeaders(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")

	groups, err := env.svc.ListLeaders(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Gomez", groups[0].Candidate)
	assert.Len(t, groups[0].Leaders, 2)

	groups, err = env.svc.RefreshLeaders(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
	assert.Contains(t, env.audit.actions(), ActionLeadersRefreshed)
}

func TestRefreshLeaders_FailureIsNotAudited(t *testing.T) {
	var down atomic.Bool
	audit := &memAuditor{}
	svc := New(Options{
		Registrar: bulk.RegistrarFunc(func(ctx context.Context, rec bulk.VoterRecord) (bulk.CreateResult, error) {
			return acceptAll(rec)
		}),
		Leaders: leaders.SourceFunc(func(ctx context.Context) ([]leaders.Leader, error) {
			if down.Load() {
				return nil, errors.New("dial tcp: connection refused")
			}
			return testLeaders, nil
		}),
		Auditor: audit,
	})
	ctx := staffCtx("ana@example.com")

	_, err := svc.ListLeaders(ctx)
	require.NoError(t, err)

	down.Store(true)
	_, err = svc.RefreshLeaders(ctx)
	require.Error(t, err)
	assert.Equal(t, "DB003", MapError(err).Code)
	assert.NotContains(t, audit.actions(), ActionLeadersRefreshed)

	// readers keep the previous list
	groups, err := svc.ListLeaders(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	down.Store(false)
	_, err = svc.RefreshLeaders(ctx)
	require.NoError(t, err)
	assert.Contains(t, audit.actions(), ActionLeadersRefreshed)
}

func TestRunHistory(t *testing.T) {
	env := newTestEnv(t, func(rec bulk.VoterRecord) (bulk.CreateResult, error) {
		if rec.Identifier == "222" {
			return bulk.CreateResult{Success: false, Error: "voter already registered"}, nil
		}
		return acceptAll(rec)
	})
	ctx := staffCtx("ana@example.com")
	view, err := env.svc.CreateGrid(ctx)
	require.NoError(t, err)
	fillRow(t, env.svc, ctx, view.ID, 1, "111")
	fillRow(t, env.svc, ctx, view.ID, 2, "222")

	report, err := env.svc.Submit(ctx, view.ID)
	require.NoError(t, err)

	entries, err := env.svc.RunHistory(ctx, view.ID, report.RunID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ActionVoterRegistered, entries[0].Action)
	assert.Equal(t, "111", entries[0].Identifier)
	assert.Equal(t, ActionVoterRejected, entries[1].Action)
	assert.Equal(t, ActionSubmissionRun, entries[2].Action)

	t.Run("other staff", func(t *testing.T) {
		_, err := env.svc.RunHistory(staffCtx("luis@example.com"), view.ID, report.RunID)
		assert.ErrorIs(t, err, ErrGridNotFound)
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := env.svc.RunHistory(ctx, view.ID, "8f14e45f-ceea-467f-a0e6-1f6b3c2d9a10")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("malformed run id", func(t *testing.T) {
		_, err := env.svc.RunHistory(ctx, view.ID, "last")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("run of another grid", func(t *testing.T) {
		other, err := env.svc.CreateGrid(ctx)
		require.NoError(t, err)
		_, err = env.svc.RunHistory(ctx, other.ID, report.RunID)
		assert.ErrorIs(t, err, ErrRunNotFound)
	})
}

type countingFinder map[string]int64

func (f countingFinder) FindVoter(ctx context.Context, identifier string) (Voter, error) {
	return Voter{}, ErrVoterNotFound
}

func (f countingFinder) CountByLeader(ctx context.Context, leaderID string) (int64, error) {
	return f[leaderID], nil
}

func TestLeaderDetail(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	ctx := staffCtx("ana@example.com")

	detail, err := env.svc.LeaderDetail(ctx, "l3")
	require.NoError(t, err)
	assert.Equal(t, "Carla Sosa", detail.DisplayName())
	assert.Zero(t, detail.Registered, "no counting store wired")

	env.svc.voters = countingFinder{"l3": 4}
	detail, err = env.svc.LeaderDetail(ctx, "l3")
	require.NoError(t, err)
	assert.EqualValues(t, 4, detail.Registered)
	assert.Equal(t, "Gomez", detail.Candidate)

	_, err = env.svc.LeaderDetail(ctx, "missing")
	assert.ErrorIs(t, err, leaders.ErrNotFound)
}

func TestLookupVoter_NoFinder(t *testing.T) {
	env := newTestEnv(t, acceptAll)
	_, err := env.svc.LookupVoter(context.Background(), "123")
	assert.ErrorIs(t, err, ErrVoterNotFound)
}
