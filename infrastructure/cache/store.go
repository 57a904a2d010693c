// Package cache provides the expiring in-process store behind the catalog
// read cache.
//
// Store maps string keys to values with an absolute expiry. Reads go through
// GetOrPopulate, which runs at most one loader per key at a time and hands the
// outcome to every caller waiting on that key. Failed loads are never stored.
//
// Invalidation is generation based: Invalidate and Clear bump a counter that
// populations in flight compare against before storing, so a load that
// started before an invalidation returns its value to its own waiters but
// never lands in the store.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key on a miss.
type Loader func(ctx context.Context) (any, error)

// EvictReason says why an entry left the store.
type EvictReason string

const (
	EvictExpired     EvictReason = "expired"
	EvictInvalidated EvictReason = "invalidated"
	EvictCleared     EvictReason = "cleared"
	EvictCapacity    EvictReason = "capacity"
)

// Observer receives store events, typically to feed metrics.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheLoad(key string, duration time.Duration, err error)
	CacheEvict(key string, reason EvictReason, count int)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)                        {}
func (nopObserver) CacheMiss(string)                       {}
func (nopObserver) CacheLoad(string, time.Duration, error) {}
func (nopObserver) CacheEvict(string, EvictReason, int)    {}

// Config configures a Store. The zero value is usable.
type Config struct {
	// MaxEntries bounds the number of stored entries. When full, the entry
	// closest to expiry is evicted. Zero means unbounded.
	MaxEntries int
	// Clock overrides time.Now.
	Clock func() time.Time
	// Observer receives hit, miss, load and eviction events.
	Observer Observer
	// LoadTimeout bounds a single load. Waiters on a load that runs past it
	// get context.DeadlineExceeded and the key can be loaded again. Zero
	// means DefaultLoadTimeout.
	LoadTimeout time.Duration
}

// DefaultLoadTimeout is used when Config.LoadTimeout is zero.
const DefaultLoadTimeout = 10 * time.Second

// Stats is a snapshot of store counters.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Loads         int64 `json:"loads"`
	LoadErrors    int64 `json:"load_errors"`
	Discarded     int64 `json:"discarded"`
	Invalidations int64 `json:"invalidations"`
	Evictions     int64 `json:"evictions"`
	Entries       int   `json:"entries"`
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a concurrency-safe expiring key/value store with single-flight
// population. Create it with NewStore; the zero value is not usable.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]entry
	inflight map[string]int
	gens     map[string]uint64
	epoch    uint64

	group singleflight.Group

	maxEntries  int
	loadTimeout time.Duration
	now         func() time.Time
	observer    Observer
	logger      *zap.Logger
	initialized bool

	hits          atomic.Int64
	misses        atomic.Int64
	loads         atomic.Int64
	loadErrors    atomic.Int64
	discarded     atomic.Int64
	invalidations atomic.Int64
	evictions     atomic.Int64
}

// NewStore creates an empty store.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	return &Store{
		entries:     make(map[string]entry),
		inflight:    make(map[string]int),
		gens:        make(map[string]uint64),
		maxEntries:  cfg.MaxEntries,
		loadTimeout: cfg.LoadTimeout,
		now:         cfg.Clock,
		observer:    cfg.Observer,
		logger:      logger,
		initialized: true,
	}
}

func (s *Store) mustBeInitialized() {
	if s == nil || !s.initialized {
		panic("cache: Store used before NewStore")
	}
}

// GetOrPopulate returns the live value for key, or calls load and stores its
// result for ttl. Concurrent callers for the same key share one load call.
// A non-positive ttl hands the loaded value back without retaining it.
//
// The load runs on a context detached from the caller's cancellation so
// that one waiter giving up does not fail the others. A caller whose ctx is
// done stops waiting and gets ctx.Err(). The load itself is bounded by the
// store's load timeout.
func (s *Store) GetOrPopulate(ctx context.Context, key string, ttl time.Duration, load Loader) (any, error) {
	s.mustBeInitialized()

	if v, ok := s.lookup(key); ok {
		s.hits.Add(1)
		s.observer.CacheHit(key)
		return v, nil
	}
	s.misses.Add(1)
	s.observer.CacheMiss(key)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(detached, s.loadTimeout)
		defer cancel()
		return s.populate(loadCtx, key, ttl, load)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is GetOrPopulate with a typed loader and result.
func Fetch[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.GetOrPopulate(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: entry %q holds %T, want %T", key, v, zero)
	}
	return typed, nil
}

func (s *Store) lookup(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

type snapshot struct {
	epoch uint64
	gen   uint64
}

func (s *Store) populate(ctx context.Context, key string, ttl time.Duration, load Loader) (any, error) {
	// A previous flight may have stored the value after our miss.
	if v, ok := s.lookup(key); ok {
		return v, nil
	}

	s.mu.Lock()
	s.inflight[key]++
	snap := snapshot{epoch: s.epoch, gen: s.gens[key]}
	s.mu.Unlock()

	start := s.now()
	value, err := s.runLoader(ctx, key, load)
	s.observer.CacheLoad(key, s.now().Sub(start), err)
	s.finish(key, snap, value, ttl, err)
	return value, err
}

type loadResult struct {
	value any
	err   error
}

// runLoader calls load and gives up when ctx is done, even if load ignores
// ctx. A result arriving after that is dropped.
func (s *Store) runLoader(ctx context.Context, key string, load Loader) (any, error) {
	done := make(chan loadResult, 1)
	go func() {
		var res loadResult
		defer func() {
			if r := recover(); r != nil {
				res = loadResult{err: fmt.Errorf("cache: loader for %q panicked: %v", key, r)}
			}
			done <- res
		}()
		res.value, res.err = load(ctx)
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("cache: loader for %q: %w", key, ctx.Err())
	}
}

// finish records the outcome of a load and stores it if no invalidation
// touched the key while it ran.
func (s *Store) finish(key string, snap snapshot, value any, ttl time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := snapshot{epoch: s.epoch, gen: s.gens[key]}
	if s.inflight[key]--; s.inflight[key] <= 0 {
		delete(s.inflight, key)
		delete(s.gens, key)
	}

	if err != nil {
		s.loadErrors.Add(1)
		s.logger.Debug("Cache population failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	s.loads.Add(1)

	if current != snap {
		s.discarded.Add(1)
		s.logger.Debug("Discarding population superseded by invalidation",
			zap.String("key", key),
		)
		return
	}
	if ttl <= 0 {
		return
	}

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOneLocked()
	}
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
}

// evictOneLocked drops the entry closest to expiry. Caller holds mu.
func (s *Store) evictOneLocked() {
	var (
		victim   string
		earliest time.Time
		found    bool
	)
	for k, e := range s.entries {
		if !found || e.expiresAt.Before(earliest) {
			victim, earliest, found = k, e.expiresAt, true
		}
	}
	if !found {
		return
	}
	delete(s.entries, victim)
	s.evictions.Add(1)
	s.observer.CacheEvict(victim, EvictCapacity, 1)
}

// Invalidate removes key. It is a no-op if key is absent. A load already
// running for key will not store its result, and the next reader starts a
// fresh load instead of joining it.
func (s *Store) Invalidate(key string) {
	s.mustBeInitialized()

	s.mu.Lock()
	_, existed := s.entries[key]
	delete(s.entries, key)
	if s.inflight[key] > 0 {
		s.gens[key]++
	}
	s.mu.Unlock()

	s.group.Forget(key)
	s.invalidations.Add(1)
	if existed {
		s.observer.CacheEvict(key, EvictInvalidated, 1)
	}
}

// InvalidatePrefix invalidates every key starting with prefix and returns
// the number of stored entries removed.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mustBeInitialized()

	s.mu.Lock()
	removed := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			removed++
		}
	}
	var forget []string
	for k := range s.inflight {
		if strings.HasPrefix(k, prefix) {
			s.gens[k]++
			forget = append(forget, k)
		}
	}
	s.mu.Unlock()

	for _, k := range forget {
		s.group.Forget(k)
	}
	s.invalidations.Add(1)
	if removed > 0 {
		s.observer.CacheEvict(prefix, EvictInvalidated, removed)
	}
	return removed
}

// Clear removes every entry and returns how many there were. Loads already
// running will not store.
func (s *Store) Clear() int {
	s.mustBeInitialized()

	s.mu.Lock()
	count := len(s.entries)
	s.entries = make(map[string]entry)
	s.epoch++
	forget := make([]string, 0, len(s.inflight))
	for k := range s.inflight {
		forget = append(forget, k)
	}
	s.mu.Unlock()

	for _, k := range forget {
		s.group.Forget(k)
	}
	s.invalidations.Add(1)
	s.observer.CacheEvict("*", EvictCleared, count)
	s.logger.Info("Cleared cache entries", zap.Int("count", count))
	return count
}

// DeleteExpired removes entries whose expiry has passed and returns how
// many were removed.
func (s *Store) DeleteExpired() int {
	s.mustBeInitialized()

	now := s.now()
	s.mu.Lock()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.evictions.Add(int64(removed))
		s.observer.CacheEvict("*", EvictExpired, removed)
	}
	return removed
}

// StartCleanup sweeps expired entries every interval until ctx is done.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	s.mustBeInitialized()
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.DeleteExpired(); n > 0 {
					s.logger.Debug("Swept expired cache entries", zap.Int("count", n))
				}
			}
		}
	}()
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (s *Store) Len() int {
	s.mustBeInitialized()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Loads:         s.loads.Load(),
		LoadErrors:    s.loadErrors.Load(),
		Discarded:     s.discarded.Load(),
		Invalidations: s.invalidations.Load(),
		Evictions:     s.evictions.Load(),
		Entries:       s.Len(),
	}
}
