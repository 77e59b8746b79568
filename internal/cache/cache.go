// Package cache is the staleness-aware query cache that sits in front of the
// REST API. Fresh entries are served without a network call; stale or
// invalidated ones are refetched, with concurrent fetches of one key sharing a
// single request. Failed fetches are reported to the caller and not retried.
package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options control how long a result is fresh and how long an unused entry is
// kept.
type Options struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

// DefaultOptions is used for resources without their own settings.
func DefaultOptions() Options {
	return Options{StaleTime: 30 * time.Second, GCTime: 5 * time.Minute}
}

// Fetcher loads the data for one key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	key        Key
	opts       Options
	data       any
	hasData    bool
	updatedAt  time.Time
	err        error
	errorAt    time.Time
	lastAccess time.Time
	generation uint64
	stale      bool
	fetching   int
}

// Snapshot is a read-only view of one entry.
type Snapshot struct {
	Key       Key
	Data      any
	HasData   bool
	UpdatedAt time.Time
	Err       error
	Stale     bool
	Fetching  bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	group    singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
	defaults Options
}

// Option configures a Cache.
type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l.Named("cache") }
}

func WithDefaults(o Options) Option {
	return func(c *Cache) { c.defaults = o }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		now:      time.Now,
		logger:   zap.NewNop(),
		defaults: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults returns the options used when a caller passes the zero Options.
func (c *Cache) Defaults() Options { return c.defaults }

// Fetch returns the cached data for key while it is fresh, and otherwise calls
// fetch. Concurrent callers for the same key share one fetch. A failed fetch
// returns its error and keeps any previous data on the entry.
func (c *Cache) Fetch(ctx context.Context, key Key, opts Options, fetch Fetcher) (any, error) {
	if opts == (Options{}) {
		opts = c.defaults
	}
	id := key.String()

	c.mu.Lock()
	e := c.entryLocked(key, opts)
	e.lastAccess = c.now()
	if c.freshLocked(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	gen := e.generation
	c.mu.Unlock()

	ch := c.group.DoChan(id, func() (any, error) {
		c.mu.Lock()
		e := c.entryLocked(key, opts)
		e.fetching++
		c.mu.Unlock()

		// Shared fetches outlive a single caller's cancellation.
		data, err := fetch(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		e = c.entryLocked(key, opts)
		e.fetching--
		now := c.now()
		if err != nil {
			e.err = err
			e.errorAt = now
			c.logger.Debug("Fetch failed", zap.String("key", id), zap.Error(err))
			return nil, err
		}
		e.data = data
		e.hasData = true
		e.updatedAt = now
		e.err = nil
		// An invalidation that raced the request leaves the entry stale.
		e.stale = e.generation != gen
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching %s: %w", id, ctx.Err())
	}
}

// Set stores data under key as a fresh result.
func (c *Cache) Set(key Key, data any, opts Options) {
	if opts == (Options{}) {
		opts = c.defaults
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key, opts)
	now := c.now()
	e.data = data
	e.hasData = true
	e.updatedAt = now
	e.lastAccess = now
	e.err = nil
	e.stale = false
}

// Peek returns the entry for key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{}, false
	}
	return c.snapshotLocked(e), true
}

// Invalidate marks every entry under prefix stale so the next Fetch goes to
// the server. It returns the number of entries affected.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			e.generation++
			// Later callers must not join a request that predates this.
			c.group.Forget(e.key.String())
			n++
		}
	}
	if n > 0 {
		c.logger.Debug("Invalidated queries", zap.String("prefix", prefix.String()), zap.Int("count", n))
	}
	return n
}

// Remove drops every entry under prefix.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, id)
			c.group.Forget(id)
			n++
		}
	}
	return n
}

// Entries lists all entries ordered by key.
func (c *Cache) Entries() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, c.snapshotLocked(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// GC removes entries that have not been read for longer than their GCTime.
// Entries with a fetch in flight are kept.
func (c *Cache) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for id, e := range c.entries {
		if e.fetching > 0 {
			continue
		}
		if now.Sub(e.lastAccess) > e.opts.GCTime {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Run collects garbage every interval until ctx is cancelled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.GC(); n > 0 {
				c.logger.Debug("Collected cache entries", zap.Int("count", n))
			}
		}
	}
}

func (c *Cache) entryLocked(key Key, opts Options) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key.clone(), opts: opts, lastAccess: c.now()}
		c.entries[id] = e
		return e
	}
	e.opts = opts
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	if !e.hasData || e.stale {
		return false
	}
	return c.now().Sub(e.updatedAt) < e.opts.StaleTime
}

func (c *Cache) snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Key:       e.key.clone(),
		Data:      e.data,
		HasData:   e.hasData,
		UpdatedAt: e.updatedAt,
		Err:       e.err,
		Stale:     !c.freshLocked(e),
		Fetching:  e.fetching > 0,
	}
}

// Fetch is the typed form of Cache.Fetch.
func Fetch[T any](ctx context.Context, c *Cache, key Key, opts Options, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, opts, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return typed, nil
}
