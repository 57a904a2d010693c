package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func newTestStore(clock *fakeClock) *Store {
	cfg := Config{}
	if clock != nil {
		cfg.Clock = clock.Now
	}
	return NewStore(cfg, zap.NewNop())
}

// countingLoader returns value and counts its invocations.
func countingLoader(calls *atomic.Int32, value any) Loader {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestGetOrPopulate_HitSkipsLoader(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	var calls atomic.Int32

	v1, err := s.GetOrPopulate(ctx, "k", time.Minute, countingLoader(&calls, "value"))
	require.NoError(t, err)
	v2, err := s.GetOrPopulate(ctx, "k", time.Minute, countingLoader(&calls, "other"))
	require.NoError(t, err)

	assert.Equal(t, "value", v1)
	assert.Equal(t, "value", v2)
	assert.Equal(t, int32(1), calls.Load())

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestGetOrPopulate_SingleFlight(t *testing.T) {
	s := newTestStore(nil)
	const callers = 64

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]any, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.GetOrPopulate(context.Background(), "page", time.Minute, loader)
		}(i)
	}

	require.Eventually(t, func() bool { return s.Stats().Misses == callers }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func TestGetOrPopulate_DifferentKeysLoadIndependently(t *testing.T) {
	s := newTestStore(nil)
	blockA := make(chan struct{})
	defer close(blockA)

	go func() {
		_, _ = s.GetOrPopulate(context.Background(), "a", time.Minute, func(context.Context) (any, error) {
			<-blockA
			return "a", nil
		})
	}()

	v, err := s.GetOrPopulate(context.Background(), "b", time.Minute, func(context.Context) (any, error) {
		return "b", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestGetOrPopulate_FailureIsNotCached(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	storeDown := errors.New("store unavailable")

	var calls atomic.Int32
	_, err := s.GetOrPopulate(ctx, "brands", time.Minute, func(context.Context) (any, error) {
		calls.Add(1)
		return nil, storeDown
	})
	assert.ErrorIs(t, err, storeDown)
	assert.Equal(t, 0, s.Len())

	v, err := s.GetOrPopulate(ctx, "brands", time.Minute, countingLoader(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(1), s.Stats().LoadErrors)
}

func TestGetOrPopulate_FailureReachesEveryWaiter(t *testing.T) {
	s := newTestStore(nil)
	storeDown := errors.New("store unavailable")
	release := make(chan struct{})
	const callers = 8

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.GetOrPopulate(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
				<-release
				return nil, storeDown
			})
		}(i)
	}
	require.Eventually(t, func() bool { return s.Stats().Misses == callers }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, storeDown)
	}
}

func TestGetOrPopulate_ExpiresAtTTL(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()
	var calls atomic.Int32

	_, err := s.GetOrPopulate(ctx, "k", 10*time.Second, countingLoader(&calls, "v1"))
	require.NoError(t, err)

	clock.Advance(9 * time.Second)
	_, err = s.GetOrPopulate(ctx, "k", 10*time.Second, countingLoader(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Second)
	v, err := s.GetOrPopulate(ctx, "k", 10*time.Second, countingLoader(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, int32(2), calls.Load())

	_, err = s.GetOrPopulate(ctx, "k", 10*time.Second, countingLoader(&calls, "v3"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "exactly one reload after expiry")
}

func TestGetOrPopulate_NonPositiveTTLIsNotRetained(t *testing.T) {
	s := newTestStore(nil)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		v, err := s.GetOrPopulate(context.Background(), "k", 0, countingLoader(&calls, "v"))
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, s.Len())
}

func TestInvalidate(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	var calls atomic.Int32

	_, err := s.GetOrPopulate(ctx, "k", time.Minute, countingLoader(&calls, "old"))
	require.NoError(t, err)

	s.Invalidate("k")
	s.Invalidate("missing")

	v, err := s.GetOrPopulate(ctx, "k", time.Minute, countingLoader(&calls, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidate_DuringLoadDiscardsResult(t *testing.T) {
	s := newTestStore(nil)
	started := make(chan struct{})
	release := make(chan struct{})

	type result struct {
		v   any
		err error
	}
	first := make(chan result, 1)
	go func() {
		v, err := s.GetOrPopulate(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
		first <- result{v, err}
	}()

	<-started
	s.Invalidate("k")

	// The next reader does not join the superseded flight.
	var calls atomic.Int32
	v, err := s.GetOrPopulate(context.Background(), "k", time.Minute, countingLoader(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, "stale", got.v, "waiters of the old flight still get its value")

	v, err = s.GetOrPopulate(context.Background(), "k", time.Minute, countingLoader(&calls, "unused"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v, "stale result must not overwrite the fresh entry")
	assert.Equal(t, int64(1), s.Stats().Discarded)
}

func TestClear_DuringLoadDiscardsResult(t *testing.T) {
	s := newTestStore(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = s.GetOrPopulate(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()

	<-started
	s.Clear()
	close(release)
	<-done

	assert.Equal(t, 0, s.Len())
}

func TestClear(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		_, err := s.GetOrPopulate(ctx, fmt.Sprintf("k%d", i), time.Minute, countingLoader(&calls, i))
		require.NoError(t, err)
	}
	require.Equal(t, 5, s.Len())

	removed := s.Clear()

	assert.Equal(t, 5, removed)
	assert.Equal(t, 0, s.Len())
	_, err := s.GetOrPopulate(ctx, "k0", time.Minute, countingLoader(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, int32(6), calls.Load())
}

func TestInvalidatePrefix(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()
	var calls atomic.Int32
	for _, k := range []string{"items:0", "items:1", "brands"} {
		_, err := s.GetOrPopulate(ctx, k, time.Minute, countingLoader(&calls, k))
		require.NoError(t, err)
	}

	removed := s.InvalidatePrefix("items:")

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Len())
}

func TestGetOrPopulate_CallerCancellation(t *testing.T) {
	s := newTestStore(nil)
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		<-release
		// The load context is detached from the cancelled caller.
		return "v", ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := s.GetOrPopulate(ctx, "k", time.Minute, loader)
		cancelled <- err
	}()
	patient := make(chan any, 1)
	go func() {
		v, _ := s.GetOrPopulate(context.Background(), "k", time.Minute, loader)
		patient <- v
	}()

	require.Eventually(t, func() bool { return s.Stats().Misses == 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	close(release)
	assert.Equal(t, "v", <-patient)
}

func TestGetOrPopulate_LoadTimeoutReleasesKey(t *testing.T) {
	// Arrange
	s := NewStore(Config{LoadTimeout: 20 * time.Millisecond}, zap.NewNop())
	hang := make(chan struct{})
	t.Cleanup(func() { close(hang) })
	var calls atomic.Int32
	blocked := func(context.Context) (any, error) {
		calls.Add(1)
		<-hang
		return "late", nil
	}

	// Act
	const waiters = 3
	errs := make([]error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.GetOrPopulate(context.Background(), "k", time.Minute, blocked)
		}(i)
	}
	wg.Wait()

	// Assert
	for _, err := range errs {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.LessOrEqual(t, calls.Load(), int32(waiters))
	assert.Equal(t, 0, s.Len())

	v, err := s.GetOrPopulate(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestGetOrPopulate_LoaderPanicBecomesError(t *testing.T) {
	s := newTestStore(nil)

	_, err := s.GetOrPopulate(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		panic("bad loader")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad loader")
	assert.Equal(t, 0, s.Len())
}

func TestMaxEntriesEvictsSoonestExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxEntries: 2, Clock: clock.Now}, zap.NewNop())
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = s.GetOrPopulate(ctx, "short", time.Second, countingLoader(&calls, 1))
	_, _ = s.GetOrPopulate(ctx, "long", time.Hour, countingLoader(&calls, 2))
	_, _ = s.GetOrPopulate(ctx, "new", time.Hour, countingLoader(&calls, 3))

	assert.Equal(t, 2, s.Len())
	_, _ = s.GetOrPopulate(ctx, "long", time.Hour, countingLoader(&calls, 99))
	assert.Equal(t, int32(3), calls.Load(), "long-lived entry survived")
	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestDeleteExpired(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = s.GetOrPopulate(ctx, "a", time.Second, countingLoader(&calls, 1))
	_, _ = s.GetOrPopulate(ctx, "b", time.Minute, countingLoader(&calls, 2))
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, s.DeleteExpired())
	assert.Equal(t, 1, s.Len())
}

func TestStartCleanup(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32

	_, _ = s.GetOrPopulate(context.Background(), "a", time.Second, countingLoader(&calls, 1))
	clock.Advance(time.Minute)
	s.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestFetch(t *testing.T) {
	s := newTestStore(nil)
	ctx := context.Background()

	brands, err := Fetch(ctx, s, "brands", time.Minute, func(context.Context) ([]string, error) {
		return []string{"Azure", ".NET"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Azure", ".NET"}, brands)

	_, err = Fetch(ctx, s, "brands", time.Minute, func(context.Context) (int, error) {
		return 0, nil
	})
	assert.Error(t, err, "type mismatch is reported")
}

func TestUninitializedStorePanics(t *testing.T) {
	var s Store
	assert.Panics(t, func() { s.Invalidate("k") })
	assert.Panics(t, func() { s.Clear() })

	var nilStore *Store
	assert.Panics(t, func() {
		_, _ = nilStore.GetOrPopulate(context.Background(), "k", time.Minute, nil)
	})
}

type recordingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
	loads  int
	evicts map[EvictReason]int
}

func (o *recordingObserver) CacheHit(string)  { o.mu.Lock(); o.hits++; o.mu.Unlock() }
func (o *recordingObserver) CacheMiss(string) { o.mu.Lock(); o.misses++; o.mu.Unlock() }
func (o *recordingObserver) CacheLoad(string, time.Duration, error) {
	o.mu.Lock()
	o.loads++
	o.mu.Unlock()
}
func (o *recordingObserver) CacheEvict(_ string, reason EvictReason, count int) {
	o.mu.Lock()
	if o.evicts == nil {
		o.evicts = make(map[EvictReason]int)
	}
	o.evicts[reason] += count
	o.mu.Unlock()
}

func TestObserverReceivesEvents(t *testing.T) {
	obs := &recordingObserver{}
	s := NewStore(Config{Observer: obs}, zap.NewNop())
	ctx := context.Background()
	var calls atomic.Int32

	_, _ = s.GetOrPopulate(ctx, "k", time.Minute, countingLoader(&calls, 1))
	_, _ = s.GetOrPopulate(ctx, "k", time.Minute, countingLoader(&calls, 1))
	s.Invalidate("k")

	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 1, obs.loads)
	assert.Equal(t, 1, obs.evicts[EvictInvalidated])
}
