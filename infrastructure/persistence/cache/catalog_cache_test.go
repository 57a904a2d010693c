package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/domain/catalog"
	"catalog-backend/infrastructure/cache"
	apperrors "catalog-backend/pkg/errors"
)

// MockCatalogStore is a mock implementation of ports.CatalogStore
type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) QueryPage(ctx context.Context, q catalog.PageQuery) ([]catalog.CatalogItem, int, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]catalog.CatalogItem)
	return items, args.Int(1), args.Error(2)
}

func (m *MockCatalogStore) AllBrands(ctx context.Context) ([]catalog.CatalogBrand, error) {
	args := m.Called(ctx)
	brands, _ := args.Get(0).([]catalog.CatalogBrand)
	return brands, args.Error(1)
}

func (m *MockCatalogStore) AllTypes(ctx context.Context) ([]catalog.CatalogType, error) {
	args := m.Called(ctx)
	types, _ := args.Get(0).([]catalog.CatalogType)
	return types, args.Error(1)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, inner *MockCatalogStore, opts Options, clock *testClock) *CatalogCache {
	t.Helper()
	cfg := cache.Config{}
	if clock != nil {
		cfg.Clock = clock.Now
	}
	c, err := NewCatalogCache(inner, cache.NewStore(cfg, zap.NewNop()), opts, zap.NewNop())
	require.NoError(t, err)
	return c
}

var (
	acmeZen = []catalog.CatalogBrand{{ID: 2, Brand: "Zen"}, {ID: 1, Brand: "Acme"}}
	mugs    = []catalog.CatalogType{{ID: 2, Type: "T-Shirt"}, {ID: 1, Type: "Mug"}}
)

func sampleItems(n int) []catalog.CatalogItem {
	items := make([]catalog.CatalogItem, n)
	for i := range items {
		items[i] = catalog.CatalogItem{ID: i + 1, Name: "item", Price: 100, CatalogBrandID: 1, CatalogTypeID: 1}
	}
	return items
}

func TestGetPage_CachesResult(t *testing.T) {
	// Arrange
	inner := new(MockCatalogStore)
	q := catalog.NewPageQuery(0, 10, nil, nil)
	inner.On("QueryPage", mock.Anything, q).Return(sampleItems(3), 3, nil).Once()
	c := newTestCache(t, inner, DefaultOptions(), nil)

	// Act
	first, err1 := c.GetPage(context.Background(), q)
	second, err2 := c.GetPage(context.Background(), q)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Len(t, second.Items, 3)
	assert.Equal(t, 3, second.TotalCount)
	inner.AssertExpectations(t)
}

func TestGetPage_InvalidQueryNeverReachesStore(t *testing.T) {
	inner := new(MockCatalogStore)
	c := newTestCache(t, inner, DefaultOptions(), nil)
	zero := 0

	queries := []catalog.PageQuery{
		catalog.NewPageQuery(0, 0, nil, nil),
		catalog.NewPageQuery(-1, 10, nil, nil),
		catalog.NewPageQuery(0, 10, &zero, nil),
	}
	for _, q := range queries {
		_, err := c.GetPage(context.Background(), q)
		assert.True(t, apperrors.IsInvalidQuery(err))
	}

	inner.AssertNotCalled(t, "QueryPage", mock.Anything, mock.Anything)
	assert.Equal(t, int64(0), c.Stats().Misses)
}

func TestGetPage_CallerCannotMutateCache(t *testing.T) {
	inner := new(MockCatalogStore)
	q := catalog.NewPageQuery(0, 10, nil, nil)
	inner.On("QueryPage", mock.Anything, q).Return(sampleItems(2), 2, nil).Once()
	c := newTestCache(t, inner, DefaultOptions(), nil)

	page, err := c.GetPage(context.Background(), q)
	require.NoError(t, err)
	page.Items[0].Name = "mutated"

	again, err := c.GetPage(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "item", again.Items[0].Name)
}

// countingStore blocks QueryPage until released and counts calls.
type countingStore struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *countingStore) QueryPage(_ context.Context, q catalog.PageQuery) ([]catalog.CatalogItem, int, error) {
	s.calls.Add(1)
	<-s.release
	return catalog.Paginate(sampleItems(12), q).Items, 12, nil
}

func (s *countingStore) AllBrands(context.Context) ([]catalog.CatalogBrand, error) {
	return acmeZen, nil
}

func (s *countingStore) AllTypes(context.Context) ([]catalog.CatalogType, error) {
	return mugs, nil
}

func TestGetPage_ConcurrentCallersShareOneLoad(t *testing.T) {
	inner := &countingStore{release: make(chan struct{})}
	store := cache.NewStore(cache.Config{}, zap.NewNop())
	c, err := NewCatalogCache(inner, store, DefaultOptions(), zap.NewNop())
	require.NoError(t, err)

	const callers = 32
	q := catalog.NewPageQuery(1, 5, nil, nil)
	results := make([]catalog.PagedResult[catalog.CatalogItem], callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page, err := c.GetPage(context.Background(), q)
			assert.NoError(t, err)
			results[i] = page
		}(i)
	}

	require.Eventually(t, func() bool { return store.Stats().Misses == callers }, time.Second, time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestGetPage_ReloadsOnceAfterTTL(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	inner := new(MockCatalogStore)
	q := catalog.NewPageQuery(0, 10, nil, nil)
	inner.On("QueryPage", mock.Anything, q).Return(sampleItems(1), 1, nil).Twice()
	opts := DefaultOptions()
	c := newTestCache(t, inner, opts, clock)

	_, _ = c.GetPage(context.Background(), q)
	clock.Advance(opts.ItemsTTL - time.Millisecond)
	_, _ = c.GetPage(context.Background(), q)
	inner.AssertNumberOfCalls(t, "QueryPage", 1)

	clock.Advance(time.Millisecond)
	_, _ = c.GetPage(context.Background(), q)
	_, _ = c.GetPage(context.Background(), q)
	inner.AssertNumberOfCalls(t, "QueryPage", 2)
}

func TestGetPage_StoreFailureIsNotCached(t *testing.T) {
	inner := new(MockCatalogStore)
	q := catalog.NewPageQuery(0, 10, nil, nil)
	storeDown := apperrors.NewUnavailableError("catalog-store")
	inner.On("QueryPage", mock.Anything, q).Return(nil, 0, storeDown).Once()
	inner.On("QueryPage", mock.Anything, q).Return(sampleItems(2), 2, nil).Once()
	c := newTestCache(t, inner, DefaultOptions(), nil)

	_, err := c.GetPage(context.Background(), q)
	assert.Same(t, storeDown, apperrors.GetAppError(err), "store error propagates unchanged")

	page, err := c.GetPage(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	inner.AssertExpectations(t)
}

func TestGetPage_PastLastPage(t *testing.T) {
	inner := new(MockCatalogStore)
	q := catalog.NewPageQuery(2, 5, nil, nil)
	inner.On("QueryPage", mock.Anything, q).Return(nil, 7, nil).Once()
	c := newTestCache(t, inner, DefaultOptions(), nil)

	page, err := c.GetPage(context.Background(), q)

	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 7, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages())
}

func TestGetBrands_SortedByName(t *testing.T) {
	inner := new(MockCatalogStore)
	inner.On("AllBrands", mock.Anything).Return(acmeZen, nil).Once()
	inner.On("AllTypes", mock.Anything).Return(mugs, nil).Once()
	c := newTestCache(t, inner, DefaultOptions(), nil)

	brands, err := c.GetBrands(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.CatalogBrand{{ID: 1, Brand: "Acme"}, {ID: 2, Brand: "Zen"}}, brands)

	types, err := c.GetTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mug", types[0].Type)

	// Served from cache.
	_, _ = c.GetBrands(context.Background())
	_, _ = c.GetTypes(context.Background())
	inner.AssertExpectations(t)
	assert.Equal(t, "Zen", acmeZen[0].Brand, "store slice is not reordered in place")
}

func TestOnCatalogChanged_BrandsChanged(t *testing.T) {
	// Arrange
	inner := new(MockCatalogStore)
	q := catalog.NewPageQuery(0, 10, nil, nil)
	inner.On("AllBrands", mock.Anything).Return(acmeZen, nil).Twice()
	inner.On("AllTypes", mock.Anything).Return(mugs, nil).Once()
	inner.On("QueryPage", mock.Anything, q).Return(sampleItems(1), 1, nil).Twice()
	c := newTestCache(t, inner, DefaultOptions(), nil)
	ctx := context.Background()

	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)
	_, _ = c.GetPage(ctx, q)

	// Act
	c.OnCatalogChanged(ctx, catalog.BrandsChanged)
	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)
	_, _ = c.GetPage(ctx, q)

	// Assert
	inner.AssertNumberOfCalls(t, "AllBrands", 2)
	inner.AssertNumberOfCalls(t, "AllTypes", 1)
	inner.AssertNumberOfCalls(t, "QueryPage", 2)
}

func TestOnCatalogChanged_TypesChanged(t *testing.T) {
	inner := new(MockCatalogStore)
	inner.On("AllBrands", mock.Anything).Return(acmeZen, nil).Once()
	inner.On("AllTypes", mock.Anything).Return(mugs, nil).Twice()
	c := newTestCache(t, inner, DefaultOptions(), nil)
	ctx := context.Background()

	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)
	c.OnCatalogChanged(ctx, catalog.TypesChanged)
	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)

	inner.AssertExpectations(t)
}

func TestOnCatalogChanged_ItemsOnly(t *testing.T) {
	brand := 1
	tests := []struct {
		name            string
		mode            InvalidationMode
		wantPageLoads   int
		wantBrandsLoads int
	}{
		{"precise evicts pages", InvalidationPrecise, 4, 1},
		{"ttl only keeps pages", InvalidationTTLOnly, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := new(MockCatalogStore)
			inner.On("AllBrands", mock.Anything).Return(acmeZen, nil)
			inner.On("QueryPage", mock.Anything, mock.Anything).Return(sampleItems(1), 1, nil)
			opts := DefaultOptions()
			opts.InvalidationMode = tt.mode
			c := newTestCache(t, inner, opts, nil)
			ctx := context.Background()
			queries := []catalog.PageQuery{
				catalog.NewPageQuery(0, 10, nil, nil),
				catalog.NewPageQuery(0, 10, &brand, nil),
			}

			_, _ = c.GetBrands(ctx)
			for _, q := range queries {
				_, _ = c.GetPage(ctx, q)
			}
			c.OnCatalogChanged(ctx, catalog.ItemsOnly)
			_, _ = c.GetBrands(ctx)
			for _, q := range queries {
				_, _ = c.GetPage(ctx, q)
			}

			inner.AssertNumberOfCalls(t, "QueryPage", tt.wantPageLoads)
			inner.AssertNumberOfCalls(t, "AllBrands", tt.wantBrandsLoads)
		})
	}
}

func TestOnCatalogChanged_All(t *testing.T) {
	inner := new(MockCatalogStore)
	inner.On("AllBrands", mock.Anything).Return(acmeZen, nil).Twice()
	inner.On("AllTypes", mock.Anything).Return(mugs, nil).Twice()
	c := newTestCache(t, inner, DefaultOptions(), nil)
	ctx := context.Background()

	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)
	c.OnCatalogChanged(ctx, catalog.All)
	assert.Equal(t, 0, c.Stats().Entries)
	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)

	inner.AssertExpectations(t)
}

type recordingInvalidationObserver struct {
	scopes  []string
	removed []int
}

func (o *recordingInvalidationObserver) CacheInvalidated(scope string, removed int) {
	o.scopes = append(o.scopes, scope)
	o.removed = append(o.removed, removed)
}

func TestOnCatalogChanged_NotifiesObserver(t *testing.T) {
	obs := &recordingInvalidationObserver{}
	c := newTestCache(t, new(MockCatalogStore), DefaultOptions(), nil).WithInvalidationObserver(obs)

	c.OnCatalogChanged(context.Background(), catalog.BrandsChanged)
	c.OnCatalogChanged(context.Background(), catalog.All)

	assert.Equal(t, []string{"brands", "all"}, obs.scopes)
}

func TestOnCatalogChanged_AllReportsRemovedEntries(t *testing.T) {
	inner := new(MockCatalogStore)
	inner.On("AllBrands", mock.Anything).Return(acmeZen, nil).Once()
	inner.On("AllTypes", mock.Anything).Return(mugs, nil).Once()
	obs := &recordingInvalidationObserver{}
	c := newTestCache(t, inner, DefaultOptions(), nil).WithInvalidationObserver(obs)
	ctx := context.Background()

	_, _ = c.GetBrands(ctx)
	_, _ = c.GetTypes(ctx)
	c.OnCatalogChanged(ctx, catalog.All)

	assert.Equal(t, []int{2}, obs.removed)
}

// gatedBrandStore returns stale data on its first, gated call.
type gatedBrandStore struct {
	countingStore
	brandCalls atomic.Int32
	started    chan struct{}
	gate       chan struct{}
}

func (s *gatedBrandStore) AllBrands(context.Context) ([]catalog.CatalogBrand, error) {
	if s.brandCalls.Add(1) == 1 {
		close(s.started)
		<-s.gate
		return []catalog.CatalogBrand{{ID: 1, Brand: "Acme"}}, nil
	}
	return acmeZen, nil
}

func TestOnCatalogChanged_RacingLoadIsNotStored(t *testing.T) {
	inner := &gatedBrandStore{started: make(chan struct{}), gate: make(chan struct{})}
	c, err := NewCatalogCache(inner, cache.NewStore(cache.Config{}, zap.NewNop()), DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetBrands(ctx)
	}()
	<-inner.started

	c.OnCatalogChanged(ctx, catalog.BrandsChanged)
	close(inner.gate)
	<-done

	brands, err := c.GetBrands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 2, "pre-write load must not survive the invalidation")
}

func TestUpdateOptions(t *testing.T) {
	c := newTestCache(t, new(MockCatalogStore), DefaultOptions(), nil)

	err := c.UpdateOptions(Options{ItemsTTL: time.Second, ListsTTL: time.Minute, InvalidationMode: InvalidationTTLOnly})
	require.NoError(t, err)
	assert.Equal(t, InvalidationTTLOnly, c.Options().InvalidationMode)

	err = c.UpdateOptions(Options{ItemsTTL: 0, ListsTTL: time.Minute, InvalidationMode: InvalidationPrecise})
	assert.Error(t, err)
	assert.Equal(t, time.Second, c.Options().ItemsTTL, "rejected options leave policy untouched")
}

func TestNewCatalogCache_RejectsInvalidOptions(t *testing.T) {
	_, err := NewCatalogCache(new(MockCatalogStore), cache.NewStore(cache.Config{}, nil), Options{}, nil)
	assert.Error(t, err)

	_, err = ParseInvalidationMode("sometimes")
	assert.Error(t, err)
	mode, err := ParseInvalidationMode("TTL-Only")
	require.NoError(t, err)
	assert.Equal(t, InvalidationTTLOnly, mode)
}

func TestGetBrands_PropagatesStoreError(t *testing.T) {
	inner := new(MockCatalogStore)
	boom := errors.New("dynamodb: throttled")
	inner.On("AllBrands", mock.Anything).Return(nil, boom).Once()
	c := newTestCache(t, inner, DefaultOptions(), nil)

	_, err := c.GetBrands(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats().Entries)
}
