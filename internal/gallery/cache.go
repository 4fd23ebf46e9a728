package gallery

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/facematch"
)

// CachedLoader is a read-through cache in front of a Provider.
// A result is kept until ttl elapses or Invalidate is called. Empty results
// are never cached so a newly configured source is picked up immediately.
//
// At most one reload runs at a time and the lock is not held while it does.
// Callers arriving during a reload get the expired result if there is one,
// otherwise they wait for the reload to finish.
type CachedLoader struct {
	next Provider
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	cached   *LoadResult
	loadedAt time.Time
	inflight chan struct{}
	last     LoadResult
}

// NewCachedLoader wraps next with a cache of the given ttl.
func NewCachedLoader(next Provider, ttl time.Duration) *CachedLoader {
	return &CachedLoader{next: next, ttl: ttl, now: time.Now}
}

// Load returns the cached gallery or reloads it from the wrapped provider.
func (c *CachedLoader) Load(ctx context.Context) LoadResult {
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.loadedAt) < c.ttl {
		result := *c.cached
		c.mu.Unlock()
		return result
	}
	if c.inflight == nil {
		return c.reloadLocked(ctx)
	}
	if c.cached != nil {
		result := *c.cached
		c.mu.Unlock()
		return result
	}
	wait := c.inflight
	c.mu.Unlock()
	return c.await(ctx, wait)
}

// Invalidate drops the cached gallery; the next Load reads the sources again.
func (c *CachedLoader) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

// Refresh invalidates the cache and reloads immediately. A reload already
// running may have read the sources before the change being refreshed, so
// Refresh waits for it and then starts its own.
func (c *CachedLoader) Refresh(ctx context.Context) LoadResult {
	for {
		c.mu.Lock()
		if c.inflight == nil {
			c.cached = nil
			return c.reloadLocked(ctx)
		}
		wait := c.inflight
		c.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return emptyResult()
		}
	}
}

// reloadLocked is called with mu held and returns with it released.
func (c *CachedLoader) reloadLocked(ctx context.Context) LoadResult {
	done := make(chan struct{})
	c.inflight = done
	c.mu.Unlock()

	// Waiters share this result, so the caller going away must not abort it.
	result := c.next.Load(context.WithoutCancel(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(result.Gallery) > 0 {
		c.cached = &result
		c.loadedAt = c.now()
	} else {
		c.cached = nil
	}
	c.last = result
	c.inflight = nil
	close(done)
	return result
}

func (c *CachedLoader) await(ctx context.Context, wait <-chan struct{}) LoadResult {
	select {
	case <-wait:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.last
	case <-ctx.Done():
		return emptyResult()
	}
}

func emptyResult() LoadResult {
	return LoadResult{Gallery: facematch.Gallery{}, Source: SourceNone}
}
