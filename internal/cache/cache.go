package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cloner is implemented by payload snapshots that can deep-copy themselves.
type Cloner[P any] interface {
	Clone() P
}

// FetchFunc loads one payload from the remote data source.
type FetchFunc[P any] func(ctx context.Context, id string) (P, error)

// Option mutates cache construction configuration.
type Option func(*config)

type config struct {
	singleFlight bool
	onDrop       func(name string, id string)
}

// WithSingleFlight de-duplicates concurrent misses for the same id so that
// only one remote fetch is in flight per id. The shared fetch ignores the
// cancellation of the caller that started it.
func WithSingleFlight() Option {
	return func(cfg *config) {
		cfg.singleFlight = true
	}
}

// WithDropObserver registers a callback invoked whenever an entry leaves a
// cache, by LRU eviction or invalidation.
func WithDropObserver(observer func(name string, id string)) Option {
	return func(cfg *config) {
		if observer != nil {
			cfg.onDrop = observer
		}
	}
}

// Cache is a bounded least-recently-used payload cache fronting a remote fetch.
//
// Reads and writes go through Clone so callers never share payload memory with
// the cache. Without WithSingleFlight two concurrent misses for one id may both
// fetch; the last insert wins.
type Cache[P Cloner[P]] struct {
	name    string
	entries *lru.Cache[string, P]
	flight  *singleflight.Group
}

// New creates a cache holding at most capacity entries.
func New[P Cloner[P]](name string, capacity int, options ...Option) (*Cache[P], error) {
	cfg := config{}
	for _, option := range options {
		option(&cfg)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("new %s cache: capacity must be > 0", name)
	}

	var onEvict func(string, P)
	if cfg.onDrop != nil {
		onEvict = func(id string, _ P) {
			cfg.onDrop(name, id)
		}
	}
	entries, err := lru.NewWithEvict[string, P](capacity, onEvict)
	if err != nil {
		return nil, fmt.Errorf("new %s cache: %w", name, err)
	}

	cache := &Cache[P]{
		name:    name,
		entries: entries,
	}
	if cfg.singleFlight {
		cache.flight = &singleflight.Group{}
	}

	return cache, nil
}

// Name returns the cache label used in logs.
func (c *Cache[P]) Name() string {
	return c.name
}

// Get returns the cached payload for id, or fetches, stores and returns it on a miss.
//
// A failed fetch is returned unchanged and leaves the cache untouched.
func (c *Cache[P]) Get(ctx context.Context, id string, fetch FetchFunc[P]) (P, error) {
	if cached, ok := c.entries.Get(id); ok {
		return cached.Clone(), nil
	}
	if c.flight == nil {
		return c.fill(ctx, id, fetch)
	}

	// The shared fetch outlives any single caller; each caller waits only as
	// long as its own ctx allows.
	shared := c.flight.DoChan(id, func() (payload any, err error) {
		// DoChan re-panics on a fresh goroutine, out of reach of callers.
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("fetch %s %s: panic: %v", c.name, id, recovered)
			}
		}()
		return c.fill(context.WithoutCancel(ctx), id, fetch)
	})
	select {
	case <-ctx.Done():
		var zero P
		return zero, ctx.Err()
	case result := <-shared:
		if result.Err != nil {
			var zero P
			return zero, result.Err
		}
		return result.Val.(P).Clone(), nil
	}
}

// fill performs exactly one remote fetch and stores a private copy on success.
func (c *Cache[P]) fill(ctx context.Context, id string, fetch FetchFunc[P]) (P, error) {
	fetched, err := fetch(ctx, id)
	if err != nil {
		var zero P
		return zero, err
	}
	c.entries.Add(id, fetched.Clone())

	return fetched, nil
}

// Peek returns the cached payload without fetching or refreshing recency.
func (c *Cache[P]) Peek(id string) (P, bool) {
	cached, ok := c.entries.Peek(id)
	if !ok {
		var zero P
		return zero, false
	}

	return cached.Clone(), true
}

// Put stores payload under id, replacing any previous snapshot.
func (c *Cache[P]) Put(id string, payload P) {
	c.entries.Add(id, payload.Clone())
}

// Invalidate drops id so the next Get goes to the remote. Absent ids are a no-op.
func (c *Cache[P]) Invalidate(id string) {
	c.entries.Remove(id)
}

// Keys returns resident ids from least to most recently used.
func (c *Cache[P]) Keys() []string {
	return c.entries.Keys()
}

// Len returns the number of resident entries.
func (c *Cache[P]) Len() int {
	return c.entries.Len()
}

// Contains reports whether id is resident without refreshing recency.
func (c *Cache[P]) Contains(id string) bool {
	return c.entries.Contains(id)
}

// Purge drops every entry.
func (c *Cache[P]) Purge() {
	c.entries.Purge()
}
