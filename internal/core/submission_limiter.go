package core

// submission_limiter.go caps how many submission runs execute at once across
// all grids.
//
// Each run holds one slot for its whole duration. A submit that finds every
// slot taken waits up to maxWait and then fails with ErrTooManySubmissions.
// On shutdown WaitForDrain blocks until the running submissions finish, so a
// run is never cut off between two registrations.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManySubmissions is returned when no run slot frees up in time.
var ErrTooManySubmissions = errors.New("too many concurrent submissions, please try again later")

const (
	// DefaultMaxConcurrentRuns is used when the configured limit is not positive.
	DefaultMaxConcurrentRuns = 4

	// DefaultRunWaitTime is used when the configured wait is not positive.
	DefaultRunWaitTime = 10 * time.Second
)

// SubmissionLimiter is a counting semaphore over submission runs.
type SubmissionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewSubmissionLimiter allows at most maxConcurrent runs at once.
func NewSubmissionLimiter(maxConcurrent int, maxWait time.Duration) *SubmissionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultRunWaitTime
	}
	idle := make(chan struct{})
	close(idle)
	return &SubmissionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire takes a run slot, waiting at most maxWait. The caller must call
// Release exactly once after a nil return.
func (l *SubmissionLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.track(+1)
		return nil
	case <-timer.C:
		return ErrTooManySubmissions
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *SubmissionLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.track(+1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *SubmissionLimiter) Release() {
	l.track(-1)
	<-l.slots
}

func (l *SubmissionLimiter) track(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == 0 && delta > 0 {
		l.idle = make(chan struct{})
	}
	l.active += delta
	if l.active == 0 {
		close(l.idle)
	}
	activeSubmissions.Set(float64(l.active))
}

// ActiveCount returns the number of runs holding a slot.
func (l *SubmissionLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *SubmissionLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *SubmissionLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
func (l *SubmissionLimiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		idle := l.idle
		active := l.active
		l.mu.Unlock()

		if active == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
			// a new run may have started right after the drain; check again
		}
	}
}

// SubmissionLimiterStatus is a snapshot of the limiter for monitoring.
type SubmissionLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *SubmissionLimiter) Status() SubmissionLimiterStatus {
	return SubmissionLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
