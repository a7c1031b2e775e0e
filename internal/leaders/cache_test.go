package leaders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingSource struct {
	calls atomic.Int32
	err   atomic.Pointer[error]
	list  []Leader
	gate  chan struct{}
}

func (s *countingSource) ListActiveLeaders(ctx context.Context) ([]Leader, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p := s.err.Load(); p != nil {
		return nil, *p
	}
	return s.list, nil
}

func (s *countingSource) fail(err error) { s.err.Store(&err) }
func (s *countingSource) heal()          { s.err.Store(nil) }

var sample = []Leader{
	{ID: "l1", GivenName: "Ana", FamilyName: "Benítez", Candidate: "Candidato A", Active: true},
	{ID: "l2", GivenName: "Luis", FamilyName: "Duarte", Candidate: "Candidato A", Active: true},
	{ID: "l3", GivenName: "Marta", FamilyName: "Ortiz", Candidate: "Candidato B", Active: true},
}

func TestCache_ServesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	src := &countingSource{list: sample}
	c := NewCache(src, WithTTL(30*time.Minute), WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		got, err := c.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 3)
	}
	assert.EqualValues(t, 1, src.calls.Load())

	clock.Advance(29 * time.Minute)
	_, err := c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())

	clock.Advance(time.Minute)
	_, err = c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCache_Invalidate(t *testing.T) {
	src := &countingSource{list: sample}
	c := NewCache(src)

	_, err := c.List(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.List(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCache_StaleOnError(t *testing.T) {
	src := &countingSource{list: sample}
	c := NewCache(src)

	_, err := c.List(context.Background())
	require.NoError(t, err)

	src.fail(errors.New("connection refused"))
	c.Invalidate()

	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	src.heal()
	_, err = c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, src.calls.Load())
}

func TestCache_ErrorWhenCold(t *testing.T) {
	src := &countingSource{}
	src.fail(errors.New("connection refused"))
	c := NewCache(src)

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	src.heal()
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCache_ConcurrentCallersShareFetch(t *testing.T) {
	src := &countingSource{list: sample, gate: make(chan struct{})}
	c := NewCache(src)

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			got, err := c.List(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 3)
		}()
	}

	// let the callers pile up behind the first fetch
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &countingSource{list: sample, gate: make(chan struct{})}
	c := NewCache(src)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.List(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 },
		time.Second, 5*time.Millisecond, "first caller should start the fetch")

	type result struct {
		list []Leader
		err  error
	}
	second := make(chan result, 1)
	go func() {
		list, err := c.List(context.Background())
		second <- result{list, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(src.gate)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, sample, res.list)
	case <-time.After(time.Second):
		t.Fatal("live caller never got the list")
	}
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestCache_RefreshReportsFailure(t *testing.T) {
	src := &countingSource{list: sample}
	c := NewCache(src)

	_, err := c.List(context.Background())
	require.NoError(t, err)

	src.fail(errors.New("connection refused"))
	_, err = c.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// the old list is still served to ordinary readers
	got, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	src.heal()
	got, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sample, got)
	assert.EqualValues(t, 4, src.calls.Load())
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(&countingSource{list: sample})

	got, err := c.List(context.Background())
	require.NoError(t, err)
	got[0].GivenName = "changed"

	again, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", again[0].GivenName)
}

func TestCache_Lookup(t *testing.T) {
	c := NewCache(&countingSource{list: sample})

	l, err := c.Lookup(context.Background(), "l3")
	require.NoError(t, err)
	assert.Equal(t, "Marta Ortiz", l.DisplayName())

	_, err = c.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupByCandidate(t *testing.T) {
	groups := GroupByCandidate(sample)
	require.Len(t, groups, 2)
	assert.Equal(t, "Candidato A", groups[0].Candidate)
	assert.Equal(t, []string{"l1", "l2"}, []string{groups[0].Leaders[0].ID, groups[0].Leaders[1].ID})
	assert.Equal(t, "Candidato B", groups[1].Candidate)
	assert.Len(t, groups[1].Leaders, 1)

	assert.Empty(t, GroupByCandidate(nil))
}
