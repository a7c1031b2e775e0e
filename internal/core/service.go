package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/campaign/internal/bulk"
	"github.com/JonMunkholm/campaign/internal/config"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/JonMunkholm/campaign/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrGridNotFound is returned for an unknown, expired, or foreign grid id.
	ErrGridNotFound = errors.New("grid not found")

	// ErrInvalidRowID is returned when a row id cannot be parsed.
	ErrInvalidRowID = errors.New("invalid row id")
)

// GridSettings configures the grids a Service creates and submits.
type GridSettings struct {
	Size           int
	CallTimeout    time.Duration
	Placeholders   bulk.Placeholders
	DefaultContact string
	IdleTTL        time.Duration
}

// GridView is a snapshot of one grid session.
type GridView struct {
	ID           string     `json:"id"`
	Rows         []bulk.Row `json:"rows"`
	Stats        bulk.Stats `json:"stats"`
	PendingRowID int        `json:"pendingRowId,omitempty"`
	Submitting   bool       `json:"submitting"`
}

// Options wires a Service. Registrar and Leaders are required; the rest
// fall back to in-memory defaults.
type Options struct {
	Registrar bulk.Registrar
	Leaders   leaders.Source
	Voters    VoterFinder
	Auditor   Auditor
	Limiter   *SubmissionLimiter
	Grid      GridSettings
	LeaderTTL time.Duration
	Now       func() time.Time
}

// Service owns the grid sessions and coordinates submissions, reference data
// and auditing.
type Service struct {
	registrar bulk.Registrar
	leaders   *leaders.Cache
	voters    VoterFinder
	audit     Auditor
	limiter   *SubmissionLimiter
	settings  GridSettings
	now       func() time.Time

	mu    sync.Mutex
	grids map[string]*gridSession
}

type gridSession struct {
	id       string
	owner    string
	grid     *bulk.Grid
	lastUsed time.Time
}

// NewService builds a Service backed by the database pool.
func NewService(pool *pgxpool.Pool, cfg *config.Config) *Service {
	return New(Options{
		Registrar: NewDBRegistrar(pool),
		Leaders:   NewDBLeaderSource(pool),
		Voters:    NewDBVoterFinder(pool),
		Auditor:   NewAuditService(pool),
		Limiter:   NewSubmissionLimiter(cfg.Grid.MaxConcurrentRuns, cfg.Grid.RunWaitTime),
		Grid: GridSettings{
			Size:        cfg.Grid.Size,
			CallTimeout: cfg.Grid.CallTimeout,
			Placeholders: bulk.Placeholders{
				Sex:      cfg.Grid.PlaceholderSex,
				Age:      cfg.Grid.PlaceholderAge,
				Locality: cfg.Grid.PlaceholderLocality,
			},
			DefaultContact: cfg.Grid.DefaultContact,
			IdleTTL:        cfg.Grid.SessionIdleTTL,
		},
		LeaderTTL: cfg.Leaders.CacheTTL,
	})
}

// New creates a Service from explicit collaborators.
func New(opts Options) *Service {
	s := &Service{
		registrar: opts.Registrar,
		leaders:   leaders.NewCache(opts.Leaders, leaders.WithTTL(opts.LeaderTTL)),
		voters:    opts.Voters,
		audit:     opts.Auditor,
		limiter:   opts.Limiter,
		settings:  opts.Grid,
		now:       opts.Now,
		grids:     make(map[string]*gridSession),
	}
	if s.audit == nil {
		s.audit = discardAuditor{}
	}
	if s.limiter == nil {
		s.limiter = NewSubmissionLimiter(DefaultMaxConcurrentRuns, DefaultRunWaitTime)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.settings.Size <= 0 {
		s.settings.Size = bulk.DefaultGridSize
	}
	if s.settings.Placeholders == (bulk.Placeholders{}) {
		s.settings.Placeholders = bulk.DefaultPlaceholders
	}
	return s
}

// CreateGrid opens a new empty grid owned by the caller.
func (s *Service) CreateGrid(ctx context.Context) (GridView, error) {
	sess := &gridSession{
		id:       uuid.NewString(),
		owner:    MetadataFromContext(ctx).Actor,
		grid:     bulk.NewGrid(s.settings.Size, bulk.WithDefaultContact(s.settings.DefaultContact)),
		lastUsed: s.now(),
	}

	s.mu.Lock()
	s.grids[sess.id] = sess
	openGrids.Set(float64(len(s.grids)))
	s.mu.Unlock()

	s.logAudit(ctx, AuditLogParams{Action: ActionGridCreated, GridID: sess.id})
	logging.FromContext(ctx).Info("grid created", "grid_id", sess.id, "rows", s.settings.Size)
	return viewOf(sess), nil
}

// GridState returns the current snapshot of a grid.
func (s *Service) GridState(ctx context.Context, gridID string) (GridView, error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return GridView{}, err
	}
	return viewOf(sess), nil
}

// EditField sets one field of one row.
func (s *Service) EditField(ctx context.Context, gridID string, rowID int, field, value string) (bulk.Row, error) {
	f, err := bulk.ParseField(field)
	if err != nil {
		return bulk.Row{}, err
	}
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return bulk.Row{}, err
	}
	return sess.grid.EditField(rowID, f, value)
}

// Activate ticks a row's checkbox.
func (s *Service) Activate(ctx context.Context, gridID string, rowID int) (bulk.Row, error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return bulk.Row{}, err
	}
	return sess.grid.Activate(rowID)
}

// RequestDeactivate unticks a row's checkbox. pending is true when the row
// holds data and the caller must confirm before it is cleared.
func (s *Service) RequestDeactivate(ctx context.Context, gridID string, rowID int) (pending bool, err error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return false, err
	}
	return sess.grid.RequestDeactivate(rowID)
}

// ConfirmDeactivate clears the row named by the pending confirmation.
func (s *Service) ConfirmDeactivate(ctx context.Context, gridID string) (bulk.Row, error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return bulk.Row{}, err
	}
	rowID, ok := sess.grid.Pending()
	if !ok {
		return bulk.Row{}, bulk.ErrNoPendingConfirmation
	}
	if err := sess.grid.ConfirmDeactivate(rowID); err != nil {
		return bulk.Row{}, err
	}
	s.logAudit(ctx, AuditLogParams{Action: ActionRowCleared, GridID: gridID, RowID: rowID})
	return sess.grid.Row(rowID)
}

// CancelDeactivate drops the pending confirmation.
func (s *Service) CancelDeactivate(ctx context.Context, gridID string) error {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return err
	}
	sess.grid.CancelDeactivate()
	return nil
}

// TemporaryIdentifier writes a random 4-digit identifier into the row.
func (s *Service) TemporaryIdentifier(ctx context.Context, gridID string, rowID int) (bulk.Row, error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return bulk.Row{}, err
	}
	if _, err := sess.grid.GenerateTemporaryIdentifier(rowID); err != nil {
		return bulk.Row{}, err
	}
	return sess.grid.Row(rowID)
}

// DefaultContact writes the fallback contact number into the row.
func (s *Service) DefaultContact(ctx context.Context, gridID string, rowID int) (bulk.Row, error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return bulk.Row{}, err
	}
	return sess.grid.FillDefaultContact(rowID)
}

// Submit runs one submission over the grid.
//
// The run holds a limiter slot for its whole duration. Registrar outcomes
// are audited as they happen; an audit failure is logged and never affects
// the run.
func (s *Service) Submit(ctx context.Context, gridID string) (bulk.Report, error) {
	sess, err := s.session(ctx, gridID)
	if err != nil {
		return bulk.Report{}, err
	}

	// a running grid answers InProgress without waiting for a slot
	if !sess.grid.Submitting() {
		if err := s.limiter.Acquire(ctx); err != nil {
			return bulk.Report{}, err
		}
		defer s.limiter.Release()
	}

	md := MetadataFromContext(ctx)
	auditCtx := context.WithoutCancel(ctx)
	logger := logging.WithFields(ctx, "grid_id", gridID)

	submitter := bulk.NewSubmitter(Instrument(s.registrar),
		bulk.WithPlaceholders(s.settings.Placeholders),
		bulk.WithCallTimeout(s.settings.CallTimeout),
		bulk.WithFaultDescriber(FormatUserError),
		bulk.WithLogger(logger),
		bulk.WithOutcomeHook(func(runID string, row bulk.Row, out bulk.Outcome) {
			s.logAudit(auditCtx, outcomeParams(gridID, runID, row, out))
		}),
	)

	report := submitter.Submit(ctx, sess.grid, md.Actor)
	submissionRunsTotal.WithLabelValues(string(report.Status)).Inc()
	s.touch(sess)

	if report.Status == bulk.StatusCompleted || report.Status == bulk.StatusDuplicates {
		s.logAudit(auditCtx, AuditLogParams{
			Action:       ActionSubmissionRun,
			GridID:       gridID,
			RunID:        report.RunID,
			RowsAffected: report.Succeeded,
			Reason:       runSummary(report),
		})
	}
	return report, nil
}

func runSummary(r bulk.Report) string {
	if r.Status == bulk.StatusDuplicates {
		return fmt.Sprintf("aborted: %d duplicate identifiers", len(r.Duplicates))
	}
	return fmt.Sprintf("attempted %d, succeeded %d, failed %d", r.Attempted, r.Succeeded, r.Failed)
}

// ListLeaders returns the active leaders grouped by candidate.
func (s *Service) ListLeaders(ctx context.Context) ([]leaders.Group, error) {
	return s.leaders.Grouped(ctx)
}

// RefreshLeaders loads the leader list again. A failed fetch is returned
// and is not audited; the previous list stays cached.
func (s *Service) RefreshLeaders(ctx context.Context) ([]leaders.Group, error) {
	list, err := s.leaders.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	groups := leaders.GroupByCandidate(list)
	s.logAudit(ctx, AuditLogParams{Action: ActionLeadersRefreshed, RowsAffected: countLeaders(groups)})
	return groups, nil
}

func countLeaders(groups []leaders.Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Leaders)
	}
	return n
}

// LookupVoter finds a registered voter by identifier.
func (s *Service) LookupVoter(ctx context.Context, identifier string) (Voter, error) {
	if s.voters == nil {
		return Voter{}, fmt.Errorf("%w: %s", ErrVoterNotFound, identifier)
	}
	return s.voters.FindVoter(ctx, identifier)
}

// RecordLogin audits a sign-in attempt for email.
func (s *Service) RecordLogin(ctx context.Context, email string, ok bool) {
	p := AuditLogParams{Action: ActionLogin, Actor: email}
	if !ok {
		p.Action = ActionLoginFailed
	}
	s.logAudit(ctx, p)
}

// ExpireIdleGrids removes grids untouched for longer than the idle TTL.
// Grids with a running submission are kept.
func (s *Service) ExpireIdleGrids() int {
	if s.settings.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.settings.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.grids {
		if sess.lastUsed.Before(cutoff) && !sess.grid.Submitting() {
			delete(s.grids, id)
			removed++
		}
	}
	openGrids.Set(float64(len(s.grids)))
	return removed
}

// GridCount returns the number of open grid sessions.
func (s *Service) GridCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grids)
}

// WaitForSubmissions blocks until no submission run is active or ctx is done.
func (s *Service) WaitForSubmissions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// SubmissionStatus reports the limiter state.
func (s *Service) SubmissionStatus() SubmissionLimiterStatus {
	return s.limiter.Status()
}

// session returns the caller's grid and marks it used.
func (s *Service) session(ctx context.Context, gridID string) (*gridSession, error) {
	actor := MetadataFromContext(ctx).Actor

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.grids[gridID]
	if !ok || sess.owner != actor {
		return nil, fmt.Errorf("%w: %s", ErrGridNotFound, gridID)
	}
	sess.lastUsed = s.now()
	return sess, nil
}

func (s *Service) touch(sess *gridSession) {
	s.mu.Lock()
	sess.lastUsed = s.now()
	s.mu.Unlock()
}

func (s *Service) logAudit(ctx context.Context, p AuditLogParams) {
	if _, err := s.audit.Log(ctx, p); err != nil {
		slog.Warn("audit log failed",
			"action", p.Action,
			"grid_id", p.GridID,
			"error", err,
		)
	}
}

func viewOf(sess *gridSession) GridView {
	v := GridView{
		ID:         sess.id,
		Rows:       sess.grid.Rows(),
		Stats:      sess.grid.Stats(),
		Submitting: sess.grid.Submitting(),
	}
	if id, ok := sess.grid.Pending(); ok {
		v.PendingRowID = id
	}
	sort.Slice(v.Rows, func(i, j int) bool { return v.Rows[i].ID < v.Rows[j].ID })
	return v
}
