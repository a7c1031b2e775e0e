package leaders

// cache.go keeps the leader list in memory between requests.
//
// The list changes rarely, so it is cached for a fixed TTL. Concurrent callers
// that find the cache cold share one fetch through singleflight. The shared
// fetch is detached from the caller that started it, so one caller giving up
// does not fail the others. When a refresh fails and an older list exists,
// List serves the stale list and logs the failure; Refresh reports it.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched list is served before refreshing.
const DefaultTTL = 30 * time.Minute

// fetchTimeout bounds a shared fetch once it no longer follows a caller's
// context.
const fetchTimeout = 10 * time.Second

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the cache lifetime. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// Cache is a TTL cache in front of a Source.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	mu        sync.RWMutex
	leaders   []Leader
	fetchedAt time.Time
	loaded    bool
}

// NewCache creates a cache over source.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the active leaders, fetching them when the cache is cold or
// expired.
func (c *Cache) List(ctx context.Context) ([]Leader, error) {
	if list, ok := c.fresh(); ok {
		return list, nil
	}

	list, err := c.load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stale, ok := c.stale(); ok {
			slog.Warn("leaders: refresh failed, serving stale list",
				"error", err,
				"count", len(stale),
			)
			return stale, nil
		}
		return nil, fmt.Errorf("list leaders: %w", err)
	}
	return list, nil
}

// Refresh refetches the list now. Unlike List it never falls back to the
// stale list: a failed fetch is returned and the old list stays cached.
func (c *Cache) Refresh(ctx context.Context) ([]Leader, error) {
	c.Invalidate()
	list, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh leaders: %w", err)
	}
	return list, nil
}

// load joins or starts the shared fetch and waits for it until ctx ends.
func (c *Cache) load(ctx context.Context) ([]Leader, error) {
	ch := c.group.DoChan("leaders", func() (interface{}, error) {
		// another caller may have refreshed while we waited
		if list, ok := c.fresh(); ok {
			return list, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		list, err := c.source.ListActiveLeaders(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.store(list)
		return list, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyLeaders(res.Val.([]Leader)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns the active leader with the given id.
func (c *Cache) Lookup(ctx context.Context, id string) (Leader, error) {
	list, err := c.List(ctx)
	if err != nil {
		return Leader{}, err
	}
	for _, l := range list {
		if l.ID == id {
			return l, nil
		}
	}
	return Leader{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Grouped returns the active leaders grouped by candidate.
func (c *Cache) Grouped(ctx context.Context) ([]Group, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByCandidate(list), nil
}

// Invalidate forces the next List to refetch. The current list is kept as
// the stale fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) fresh() ([]Leader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return copyLeaders(c.leaders), true
}

func (c *Cache) stale() ([]Leader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	return copyLeaders(c.leaders), true
}

func (c *Cache) store(list []Leader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaders = copyLeaders(list)
	c.fetchedAt = c.now()
	c.loaded = true
}

func copyLeaders(list []Leader) []Leader {
	if list == nil {
		return nil
	}
	out := make([]Leader, len(list))
	copy(out, list)
	return out
}
