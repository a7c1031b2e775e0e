package bulk

// grid.go owns the ordered, fixed-size collection of rows.
//
// Row lifecycle:
//
//	Empty/Inactive --edit--> Active/HasData --request+confirm--> Empty/Inactive
//	Active/HasData --successful submission--> Empty/Inactive
//
// A row that holds data is never silently deactivated: RequestDeactivate only
// records a pending confirmation, which ConfirmDeactivate or CancelDeactivate
// resolves.

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
)

// DefaultGridSize is the number of rows a grid gets when no size is given.
const DefaultGridSize = 10

// DefaultContact is the fallback contact number offered by FillDefaultContact.
const DefaultContact = "0970111222"

var (
	// ErrUnknownRow is returned for a row id outside 1..Size.
	ErrUnknownRow = errors.New("row not found")

	// ErrNoPendingConfirmation is returned by ConfirmDeactivate when no
	// confirmation is pending for the named row.
	ErrNoPendingConfirmation = errors.New("no pending deactivation for row")

	// ErrSubmissionInProgress is returned by mutating operations while a
	// submission run owns the grid.
	ErrSubmissionInProgress = errors.New("submission in progress")
)

// Stats are the aggregate counters shown above the grid.
type Stats struct {
	Total     int  `json:"total"`
	Active    int  `json:"active"`
	Valid     int  `json:"valid"`
	Invalid   int  `json:"invalid"`
	HasErrors bool `json:"hasErrors"`
}

// GridOption configures a Grid.
type GridOption func(*Grid)

// WithDefaultContact overrides the number written by FillDefaultContact.
func WithDefaultContact(contact string) GridOption {
	return func(g *Grid) {
		if contact != "" {
			g.defaultContact = contact
		}
	}
}

// WithRandom replaces the source used for temporary identifiers.
// intn must return a value in [0, n).
func WithRandom(intn func(n int) int) GridOption {
	return func(g *Grid) {
		if intn != nil {
			g.intn = intn
		}
	}
}

// Grid is the bulk registration grid. It is safe for concurrent use.
type Grid struct {
	mu         sync.Mutex
	rows       []Row
	pending    int // row id awaiting deactivation confirmation, 0 when none
	submitting bool

	defaultContact string
	intn           func(n int) int
}

// NewGrid creates a grid of size empty, inactive rows numbered 1..size.
func NewGrid(size int, opts ...GridOption) *Grid {
	if size <= 0 {
		size = DefaultGridSize
	}
	g := &Grid{
		rows:           make([]Row, size),
		defaultContact: DefaultContact,
		intn:           rand.Intn,
	}
	for i := range g.rows {
		g.rows[i] = NewRow(i + 1)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Size returns the fixed number of rows.
func (g *Grid) Size() int {
	return len(g.rows)
}

// Rows returns a snapshot of every row in id order.
func (g *Grid) Rows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(func(Row) bool { return true })
}

// Row returns a snapshot of one row.
func (g *Grid) Row(id int) (Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, err := g.index(id)
	if err != nil {
		return Row{}, err
	}
	return g.rows[i].clone(), nil
}

// EditField sets one field of a row (see Row.SetField).
func (g *Grid) EditField(id int, f Field, value string) (Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.editLocked(id, f, value)
}

// Activate marks a row as participating in validation and submission.
func (g *Grid) Activate(id int) (Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return Row{}, ErrSubmissionInProgress
	}
	i, err := g.index(id)
	if err != nil {
		return Row{}, err
	}
	g.rows[i].Active = true
	return g.rows[i].clone(), nil
}

// RequestDeactivate deactivates a row without data immediately and reports
// pending=false. For a row holding data nothing is mutated: a confirmation
// naming the row is recorded and pending=true is returned.
func (g *Grid) RequestDeactivate(id int) (pending bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return false, ErrSubmissionInProgress
	}
	i, err := g.index(id)
	if err != nil {
		return false, err
	}
	if !g.rows[i].HasData {
		g.rows[i] = g.rows[i].Clear()
		if g.pending == id {
			g.pending = 0
		}
		return false, nil
	}
	g.pending = id
	return true, nil
}

// ConfirmDeactivate clears the row named by the pending confirmation.
func (g *Grid) ConfirmDeactivate(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return ErrSubmissionInProgress
	}
	if g.pending == 0 || g.pending != id {
		return fmt.Errorf("%w %d", ErrNoPendingConfirmation, id)
	}
	i, err := g.index(id)
	if err != nil {
		return err
	}
	g.rows[i] = g.rows[i].Clear()
	g.pending = 0
	return nil
}

// CancelDeactivate discards the pending confirmation, if any.
func (g *Grid) CancelDeactivate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = 0
}

// Pending returns the row awaiting deactivation confirmation.
func (g *Grid) Pending() (id int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending, g.pending != 0
}

// Submitting reports whether a submission run currently owns the grid.
func (g *Grid) Submitting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitting
}

// ActiveRows returns the active rows in id order.
func (g *Grid) ActiveRows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(func(r Row) bool { return r.Active })
}

// ValidRows returns the active rows that pass validation and whose
// identifier is not shared with another valid active row. It does not write
// error sets.
func (g *Grid) ValidRows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	valid := g.snapshot(func(r Row) bool { return r.Active && IsValid(r) })
	return withoutIdentifiers(valid, FindDuplicateIdentifiers(valid))
}

// Stats computes the aggregate counters.
func (g *Grid) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := Stats{Total: len(g.rows)}
	var valid []Row
	for _, r := range g.rows {
		if !r.Active {
			continue
		}
		st.Active++
		if r.HasErrors() {
			st.HasErrors = true
		}
		if IsValid(r) {
			valid = append(valid, r)
		}
	}
	st.Valid = len(withoutIdentifiers(valid, FindDuplicateIdentifiers(valid)))
	st.Invalid = st.Active - st.Valid
	return st
}

// Validate runs the validator over every active row, stores each result on
// its row and returns the rows that validated clean.
func (g *Grid) Validate() ([]Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return nil, ErrSubmissionInProgress
	}
	return g.validateLocked(), nil
}

// GenerateTemporaryIdentifier writes a random four digit identifier
// (1000-9999) into the row and returns it.
func (g *Grid) GenerateTemporaryIdentifier(id int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	value := strconv.Itoa(1000 + g.intn(9000))
	if _, err := g.editLocked(id, FieldIdentifier, value); err != nil {
		return "", err
	}
	return value, nil
}

// FillDefaultContact writes the default contact number into the row.
func (g *Grid) FillDefaultContact(id int) (Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.editLocked(id, FieldContact, g.defaultContact)
}

// beginSubmit validates the grid and, when there is something to send,
// hands ownership of the grid to the caller until endSubmit.
func (g *Grid) beginSubmit() (valid []Row, dups []string, started bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return nil, nil, false, ErrSubmissionInProgress
	}
	valid = g.validateLocked()
	if dups = FindDuplicateIdentifiers(valid); len(dups) > 0 {
		return valid, dups, false, nil
	}
	if len(valid) == 0 {
		return nil, nil, false, nil
	}
	g.submitting = true
	return valid, nil, true, nil
}

// resetSubmitted clears a row after its registration succeeded.
func (g *Grid) resetSubmitted(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i, err := g.index(id); err == nil {
		g.rows[i] = g.rows[i].Clear()
		if g.pending == id {
			g.pending = 0
		}
	}
}

func (g *Grid) endSubmit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitting = false
}

func (g *Grid) editLocked(id int, f Field, value string) (Row, error) {
	if g.submitting {
		return Row{}, ErrSubmissionInProgress
	}
	i, err := g.index(id)
	if err != nil {
		return Row{}, err
	}
	updated, err := g.rows[i].SetField(f, value)
	if err != nil {
		return Row{}, err
	}
	g.rows[i] = updated
	return updated.clone(), nil
}

func (g *Grid) validateLocked() []Row {
	var valid []Row
	for i, r := range g.rows {
		if !r.Active {
			continue
		}
		errs := Validate(r)
		g.rows[i].Errors = errs
		if len(errs) == 0 {
			valid = append(valid, g.rows[i].clone())
		}
	}
	return valid
}

func (g *Grid) index(id int) (int, error) {
	if id < 1 || id > len(g.rows) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	return id - 1, nil
}

func (g *Grid) snapshot(keep func(Row) bool) []Row {
	out := make([]Row, 0, len(g.rows))
	for _, r := range g.rows {
		if keep(r) {
			out = append(out, r.clone())
		}
	}
	return out
}
