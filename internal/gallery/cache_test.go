package gallery

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/facematch"
)

type countingProvider struct {
	calls  int
	result LoadResult
}

func (p *countingProvider) Load(_ context.Context) LoadResult {
	p.calls++
	return p.result
}

// gatedProvider blocks every load until release yields.
type gatedProvider struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	result  LoadResult
}

func newGatedProvider(source string) *gatedProvider {
	return &gatedProvider{
		started: make(chan struct{}, 8),
		release: make(chan struct{}, 8),
		result: LoadResult{
			Gallery: facematch.Gallery{{Name: "a", Embedding: facematch.Embedding{1}}},
			Source:  source,
		},
	}
}

func (p *gatedProvider) Load(_ context.Context) LoadResult {
	p.calls.Add(1)
	p.started <- struct{}{}
	<-p.release
	return p.result
}

func newTestCache(next Provider, ttl time.Duration) (*CachedLoader, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCachedLoader(next, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCachedLoader_ServesWithinTTL(t *testing.T) {
	next := &countingProvider{result: LoadResult{
		Gallery: facematch.Gallery{{Name: "a", Embedding: facematch.Embedding{1}}},
		Source:  "file",
	}}
	cache, now := newTestCache(next, time.Minute)
	ctx := context.Background()

	cache.Load(ctx)
	*now = now.Add(30 * time.Second)
	result := cache.Load(ctx)

	if next.calls != 1 {
		t.Errorf("expected 1 underlying load, got %d", next.calls)
	}
	if result.Source != "file" || len(result.Gallery) != 1 {
		t.Errorf("unexpected cached result: %+v", result)
	}
}

func TestCachedLoader_ExpiresAfterTTL(t *testing.T) {
	next := &countingProvider{result: LoadResult{
		Gallery: facematch.Gallery{{Name: "a", Embedding: facematch.Embedding{1}}},
		Source:  "database",
	}}
	cache, now := newTestCache(next, time.Minute)
	ctx := context.Background()

	cache.Load(ctx)
	*now = now.Add(time.Minute)
	cache.Load(ctx)

	if next.calls != 2 {
		t.Errorf("expected reload after TTL, got %d loads", next.calls)
	}
}

func TestCachedLoader_Invalidate(t *testing.T) {
	next := &countingProvider{result: LoadResult{
		Gallery: facematch.Gallery{{Name: "a", Embedding: facematch.Embedding{1}}},
		Source:  "file",
	}}
	cache, _ := newTestCache(next, time.Hour)
	ctx := context.Background()

	cache.Load(ctx)
	cache.Invalidate()
	cache.Load(ctx)

	if next.calls != 2 {
		t.Errorf("expected reload after invalidation, got %d loads", next.calls)
	}

	cache.Refresh(ctx)
	if next.calls != 3 {
		t.Errorf("expected Refresh to reload, got %d loads", next.calls)
	}
}

func TestCachedLoader_DoesNotCacheEmpty(t *testing.T) {
	next := &countingProvider{result: LoadResult{Gallery: facematch.Gallery{}, Source: SourceNone}}
	cache, _ := newTestCache(next, time.Hour)
	ctx := context.Background()

	cache.Load(ctx)
	cache.Load(ctx)

	if next.calls != 2 {
		t.Errorf("expected empty results to bypass the cache, got %d loads", next.calls)
	}
}

func TestCachedLoader_ConcurrentColdLoadsShareOneReload(t *testing.T) {
	next := newGatedProvider("file")
	cache, _ := newTestCache(next, time.Minute)
	ctx := context.Background()

	results := make([]LoadResult, 6)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = cache.Load(ctx)
	}()
	<-next.started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cache.Load(ctx)
		}()
	}
	close(next.release)
	wg.Wait()

	if next.calls.Load() != 1 {
		t.Errorf("expected a single underlying load, got %d", next.calls.Load())
	}
	for i, result := range results {
		if len(result.Gallery) != 1 || result.Source != "file" {
			t.Errorf("caller %d got %+v", i, result)
		}
	}
}

func TestCachedLoader_ServesStaleDuringReload(t *testing.T) {
	next := newGatedProvider("file")
	cache, now := newTestCache(next, time.Minute)
	ctx := context.Background()

	next.release <- struct{}{}
	cache.Load(ctx)
	<-next.started
	*now = now.Add(2 * time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.Load(ctx)
	}()
	<-next.started

	result := cache.Load(ctx)
	if len(result.Gallery) != 1 || result.Source != "file" {
		t.Errorf("expected the expired gallery while reloading, got %+v", result)
	}
	if next.calls.Load() != 2 {
		t.Errorf("expected the reload in flight to be reused, got %d loads", next.calls.Load())
	}

	close(next.release)
	<-done
}

func TestCachedLoader_WaiterHonorsContext(t *testing.T) {
	next := newGatedProvider("file")
	cache, _ := newTestCache(next, time.Minute)

	done := make(chan LoadResult, 1)
	go func() { done <- cache.Load(context.Background()) }()
	<-next.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := cache.Load(ctx)
	if result.Source != SourceNone || len(result.Gallery) != 0 {
		t.Errorf("expected empty result for cancelled waiter, got %+v", result)
	}

	close(next.release)
	if leader := <-done; leader.Source != "file" {
		t.Errorf("expected the reload to finish despite the cancelled waiter, got %+v", leader)
	}
}

func TestCachedLoader_RefreshWaitsForReloadInFlight(t *testing.T) {
	next := newGatedProvider("file")
	cache, _ := newTestCache(next, time.Hour)
	ctx := context.Background()

	loadDone := make(chan struct{})
	go func() {
		defer close(loadDone)
		cache.Load(ctx)
	}()
	<-next.started

	refreshed := make(chan LoadResult, 1)
	go func() { refreshed <- cache.Refresh(ctx) }()

	close(next.release)
	<-loadDone
	result := <-refreshed

	if next.calls.Load() != 2 {
		t.Errorf("expected Refresh to start its own load after the one in flight, got %d loads", next.calls.Load())
	}
	if result.Source != "file" {
		t.Errorf("unexpected refresh result %+v", result)
	}
}
