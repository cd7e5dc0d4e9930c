package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.November, 15, 6, 0, 0, 0, time.UTC)}
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

func TestGetExpiresLazily(t *testing.T) {
	clock := newFakeClock()
	c := NewResultCache(0).WithClock(clock.Now)

	c.Set("weather:21.700:72.980", 29.5, time.Minute)
	if v, ok := c.Get("weather:21.700:72.980"); !ok || v.(float64) != 29.5 {
		t.Fatalf("expected fresh hit, got %v %v", v, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get("weather:21.700:72.980"); ok {
		t.Fatalf("entry must expire once its ttl has elapsed")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read, len=%d", c.Len())
	}
}

func TestSetNonPositiveTTLIsNoop(t *testing.T) {
	c := NewResultCache(0)
	c.Set("k", 1, 0)
	c.Set("k2", 1, -time.Second)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := NewResultCache(0).WithClock(clock.Now)

	c.Set("short-1", 1, time.Second)
	c.Set("short-2", 2, time.Second)
	c.Set("long", 3, time.Hour)

	clock.Advance(2 * time.Second)
	if removed := c.Sweep(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := c.Get("long"); !ok || c.Len() != 1 {
		t.Fatalf("long-lived entry should survive the sweep")
	}
}

func TestCapEvictsExpiredThenOldest(t *testing.T) {
	clock := newFakeClock()
	c := NewResultCache(2).WithClock(clock.Now)

	c.Set("a", 1, time.Second)
	clock.Advance(time.Millisecond)
	c.Set("b", 2, time.Hour)
	clock.Advance(2 * time.Second)

	// "a" is expired and goes first.
	c.Set("c", 3, time.Hour)
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("fresh entry b should be kept while an expired one exists")
	}

	// Nothing is expired now; the oldest insertion ("b") is evicted.
	clock.Advance(time.Millisecond)
	c.Set("d", 4, time.Hour)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("oldest entry b should have been evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("cache must respect its cap, len=%d", c.Len())
	}

	// Overwriting an existing key never evicts.
	c.Set("d", 5, time.Hour)
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("overwrite must not evict other entries")
	}
}

// TestGetOrLoadCollapsesConcurrentLoads verifies that concurrent callers for
// the same key share a single upstream call.
func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := NewResultCache(0)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "Gujarat", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "location:21.7000:72.9800", time.Hour, load)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one load, got %d", n)
	}
	for i, v := range results {
		if v != "Gujarat" {
			t.Fatalf("caller %d got %v", i, v)
		}
	}
}

func TestGetOrLoadSurvivesFirstCallerCancelling(t *testing.T) {
	c := NewResultCache(0)
	key := "soil:21.7000:72.9800"

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	loadErr := make(chan error, 1)
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		loadErr <- ctx.Err()
		return "black", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, key, time.Hour, load)
		firstErr <- err
	}()
	<-started

	var second any
	var secondErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		second, secondErr = c.GetOrLoad(context.Background(), key, time.Hour, load)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should stop waiting, got %v", err)
	}
	close(release)
	<-done

	if secondErr != nil || second != "black" {
		t.Fatalf("waiting caller should get the loaded value: v=%v err=%v", second, secondErr)
	}
	if err := <-loadErr; err != nil {
		t.Fatalf("shared load must not see the first caller's cancellation: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one load, got %d", n)
	}
	if v, ok := c.Get(key); !ok || v != "black" {
		t.Fatalf("loaded value should be cached, got %v %v", v, ok)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewResultCache(0)
	errUpstream := errors.New("upstream down")

	calls := 0
	load := func(ctx context.Context) (any, error) {
		calls++
		return nil, errUpstream
	}
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrLoad(context.Background(), "k", time.Hour, load); !errors.Is(err, errUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("failed loads must not be cached, got %d calls", calls)
	}
}

func TestTypedAccessors(t *testing.T) {
	c := NewResultCache(0)
	c.Set("k", "text", time.Hour)

	if _, err := GetOrLoadAs(context.Background(), c, "k", time.Hour, func(ctx context.Context) (int, error) {
		t.Fatalf("load must not run on a hit")
		return 0, nil
	}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	if _, ok := GetAs[int](c, "k"); ok {
		t.Fatalf("GetAs must reject a value of another type")
	}
	if s, ok := GetAs[string](c, "k"); !ok || s != "text" {
		t.Fatalf("unexpected GetAs result %q %v", s, ok)
	}

	n, err := GetOrLoadAs(context.Background(), c, "n", time.Hour, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || n != 7 {
		t.Fatalf("unexpected load result %d %v", n, err)
	}
	if cached, ok := GetAs[int](c, "n"); !ok || cached != 7 {
		t.Fatalf("loaded value should be cached")
	}
}
