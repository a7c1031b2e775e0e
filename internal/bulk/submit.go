package bulk

// submit.go drives a submission run over the grid.
//
// A run validates every active row, aborts before any remote call when valid
// rows share an identifier, and otherwise registers the valid rows one at a
// time in ascending id order. Each call is awaited before the next starts, so
// at most one registration is in flight per run. Failures never stop the
// loop: they are recorded for their row and the row keeps its data for a
// retry.

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholders are the fixed values sent for attributes the grid does not
// collect.
type Placeholders struct {
	Sex      string
	Age      int
	Locality string
}

// DefaultPlaceholders match what the single-record form stores for unknowns.
var DefaultPlaceholders = Placeholders{Sex: "indefinido", Age: 100, Locality: "CDE"}

// OutcomeHook observes every registrar outcome of a run.
type OutcomeHook func(runID string, row Row, out Outcome)

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithPlaceholders overrides DefaultPlaceholders.
func WithPlaceholders(p Placeholders) SubmitterOption {
	return func(s *Submitter) { s.placeholders = p }
}

// WithCallTimeout bounds each registrar call. Zero means no bound.
func WithCallTimeout(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.callTimeout = d }
}

// WithFaultDescriber controls how fault errors appear in the report.
func WithFaultDescriber(fn func(error) string) SubmitterOption {
	return func(s *Submitter) { s.describe = fn }
}

// WithOutcomeHook registers a hook called after every registrar call.
func WithOutcomeHook(h OutcomeHook) SubmitterOption {
	return func(s *Submitter) { s.hook = h }
}

// WithLogger sets the logger used for run progress.
func WithLogger(l *slog.Logger) SubmitterOption {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SubmitterOption {
	return func(s *Submitter) {
		if now != nil {
			s.now = now
		}
	}
}

// Submitter is the sequential submission orchestrator.
type Submitter struct {
	registrar    Registrar
	placeholders Placeholders
	callTimeout  time.Duration
	describe     func(error) string
	hook         OutcomeHook
	logger       *slog.Logger
	now          func() time.Time
}

// NewSubmitter creates a Submitter that registers rows through r.
func NewSubmitter(r Registrar, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		registrar:    r,
		placeholders: DefaultPlaceholders,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record builds the registrar payload for a valid row.
func (s *Submitter) Record(row Row, registeredBy string) VoterRecord {
	return VoterRecord{
		Identifier:   row.Identifier,
		GivenName:    strings.ToUpper(row.GivenName),
		FamilyName:   strings.ToUpper(row.FamilyName),
		Contact:      row.Contact,
		Sex:          s.placeholders.Sex,
		Age:          s.placeholders.Age,
		Locality:     s.placeholders.Locality,
		LeaderID:     row.LeaderID,
		RegisteredBy: registeredBy,
	}
}

// Submit runs one submission over g on behalf of registeredBy.
//
// Submit never returns an error: every outcome, including registrar faults
// and panics, is part of the Report. Once registrar calls start the run is
// not cancelled by ctx; each call is bounded by the call timeout instead.
func (s *Submitter) Submit(ctx context.Context, g *Grid, registeredBy string) Report {
	start := s.now()
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: start,
	}
	logger := s.logger.With("run_id", report.RunID)

	valid, dups, started, err := g.beginSubmit()
	switch {
	case err != nil:
		report.Status = StatusInProgress
		logger.Warn("submission rejected: run already in progress")
		return report
	case len(dups) > 0:
		report.Status = StatusDuplicates
		report.Duplicates = dups
		logger.Warn("submission aborted: duplicate identifiers", "identifiers", dups)
		return report
	case !started:
		report.Status = StatusNothingToSubmit
		logger.Info("submission skipped: no valid rows")
		return report
	}
	defer g.endSubmit()

	ctx = context.WithoutCancel(ctx)
	logger.Info("submission started", "rows", len(valid))

	for _, row := range valid {
		out := s.submitRow(ctx, row, registeredBy)
		report.Attempted++

		switch out.Kind {
		case OutcomeSuccess:
			g.resetSubmitted(row.ID)
			report.Succeeded++
			if out.Voter != nil {
				report.Registered = append(report.Registered, *out.Voter)
			}
			logger.Debug("row registered", "row_id", row.ID)
		default:
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				RowID:      row.ID,
				Identifier: row.Identifier,
				Kind:       out.Kind,
				Reason:     out.Reason,
			})
			logger.Warn("row registration failed",
				"row_id", row.ID,
				"kind", out.Kind,
				"reason", out.Reason,
			)
		}

		s.runHook(logger, report.RunID, row, out)
	}

	report.Status = StatusCompleted
	report.Duration = s.now().Sub(start)
	logger.Info("submission completed",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

// runHook calls the outcome hook. A panicking hook is logged and the run
// continues with the next row.
func (s *Submitter) runHook(logger *slog.Logger, runID string, row Row, out Outcome) {
	if s.hook == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("outcome hook panicked", "row_id", row.ID, "panic", p)
		}
	}()
	s.hook(runID, row, out)
}

func (s *Submitter) submitRow(ctx context.Context, row Row, registeredBy string) Outcome {
	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	res, err := callRegistrar(callCtx, s.registrar, s.Record(row, registeredBy))
	return Classify(res, err, s.describe)
}
