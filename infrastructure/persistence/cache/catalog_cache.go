package cache

import (
	"context"
	"slices"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	"catalog-backend/infrastructure/cache"
)

const tracerName = "catalog-backend/infrastructure/persistence/cache"

// InvalidationObserver is told how many entries each invalidation removed.
type InvalidationObserver interface {
	CacheInvalidated(scope string, removed int)
}

// CatalogCache serves catalog reads from a Store in front of a CatalogStore
// and evicts dependent entries when the catalog changes.
type CatalogCache struct {
	inner    ports.CatalogStore
	store    *cache.Store
	opts     atomic.Pointer[Options]
	observer InvalidationObserver
	tracer   trace.Tracer
	logger   *zap.Logger
}

var (
	_ ports.CatalogReader      = (*CatalogCache)(nil)
	_ ports.CatalogInvalidator = (*CatalogCache)(nil)
)

// NewCatalogCache creates the caching decorator. The store is owned by the
// caller and may be shared with nothing else.
func NewCatalogCache(inner ports.CatalogStore, store *cache.Store, opts Options, logger *zap.Logger) (*CatalogCache, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CatalogCache{
		inner:  inner,
		store:  store,
		tracer: otel.Tracer(tracerName),
		logger: logger,
	}
	c.opts.Store(&opts)
	return c, nil
}

// WithInvalidationObserver registers o and returns c.
func (c *CatalogCache) WithInvalidationObserver(o InvalidationObserver) *CatalogCache {
	c.observer = o
	return c
}

// Options returns the policy currently in force.
func (c *CatalogCache) Options() Options {
	return *c.opts.Load()
}

// UpdateOptions swaps the policy. New TTLs apply to entries stored from now
// on; entries already cached keep their expiry.
func (c *CatalogCache) UpdateOptions(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	old := c.opts.Swap(&opts)
	c.logger.Info("Catalog cache policy updated",
		zap.Duration("items_ttl", opts.ItemsTTL),
		zap.Duration("lists_ttl", opts.ListsTTL),
		zap.String("invalidation_mode", string(opts.InvalidationMode)),
		zap.String("previous_mode", string(old.InvalidationMode)),
	)
	return nil
}

// Stats exposes the underlying store counters.
func (c *CatalogCache) Stats() cache.Stats {
	return c.store.Stats()
}

// GetPage returns one page of items, reading through the cache. Invalid
// queries are rejected before the cache or the store is touched.
func (c *CatalogCache) GetPage(ctx context.Context, q catalog.PageQuery) (catalog.PagedResult[catalog.CatalogItem], error) {
	var zero catalog.PagedResult[catalog.CatalogItem]
	if err := q.Validate(); err != nil {
		return zero, err
	}

	key := KeyForPage(q.PageIndex, q.PageSize, q.BrandID, q.TypeID)
	ctx, span := c.startSpan(ctx, "CatalogCache.GetPage", key)
	defer span.End()

	var loaded atomic.Bool
	page, err := cache.Fetch(ctx, c.store, key, c.Options().ItemsTTL,
		func(ctx context.Context) (catalog.PagedResult[catalog.CatalogItem], error) {
			loaded.Store(true)
			ctx, span := c.tracer.Start(ctx, "CatalogStore.QueryPage")
			defer span.End()

			items, total, err := c.inner.QueryPage(ctx, q)
			if err != nil {
				recordError(span, err)
				return zero, err
			}
			if items == nil {
				items = []catalog.CatalogItem{}
			}
			return catalog.PagedResult[catalog.CatalogItem]{
				Items:      slices.Clone(items),
				TotalCount: total,
				PageIndex:  q.PageIndex,
				PageSize:   q.PageSize,
			}, nil
		})
	span.SetAttributes(attribute.Bool("cache.loaded", loaded.Load()))
	if err != nil {
		recordError(span, err)
		c.logger.Debug("Catalog page read failed", zap.String("key", key), zap.Error(err))
		return zero, err
	}
	return page.Clone(), nil
}

// GetBrands returns every brand ordered by name.
func (c *CatalogCache) GetBrands(ctx context.Context) ([]catalog.CatalogBrand, error) {
	key := KeyForBrands()
	ctx, span := c.startSpan(ctx, "CatalogCache.GetBrands", key)
	defer span.End()

	brands, err := cache.Fetch(ctx, c.store, key, c.Options().ListsTTL,
		func(ctx context.Context) ([]catalog.CatalogBrand, error) {
			span.SetAttributes(attribute.Bool("cache.loaded", true))
			brands, err := c.inner.AllBrands(ctx)
			if err != nil {
				return nil, err
			}
			sorted := slices.Clone(brands)
			slices.SortFunc(sorted, catalog.CompareBrands)
			return sorted, nil
		})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return slices.Clone(brands), nil
}

// GetTypes returns every type ordered by name.
func (c *CatalogCache) GetTypes(ctx context.Context) ([]catalog.CatalogType, error) {
	key := KeyForTypes()
	ctx, span := c.startSpan(ctx, "CatalogCache.GetTypes", key)
	defer span.End()

	types, err := cache.Fetch(ctx, c.store, key, c.Options().ListsTTL,
		func(ctx context.Context) ([]catalog.CatalogType, error) {
			span.SetAttributes(attribute.Bool("cache.loaded", true))
			types, err := c.inner.AllTypes(ctx)
			if err != nil {
				return nil, err
			}
			sorted := slices.Clone(types)
			slices.SortFunc(sorted, catalog.CompareTypes)
			return sorted, nil
		})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return slices.Clone(types), nil
}

// OnCatalogChanged evicts the entries a committed write may have made
// stale. It never waits for loads in flight.
func (c *CatalogCache) OnCatalogChanged(ctx context.Context, scope catalog.ChangeScope) {
	_, span := c.tracer.Start(ctx, "CatalogCache.OnCatalogChanged",
		trace.WithAttributes(attribute.String("catalog.scope", scope.String())))
	defer span.End()

	mode := c.Options().InvalidationMode
	removed := 0

	switch scope {
	case catalog.ItemsOnly:
		if mode == InvalidationTTLOnly {
			c.logger.Debug("Item change left to TTL expiry")
			return
		}
		removed = c.store.InvalidatePrefix(PageKeyPrefix)
	case catalog.BrandsChanged:
		c.store.Invalidate(KeyForBrands())
		removed = c.store.InvalidatePrefix(PageKeyPrefix)
	case catalog.TypesChanged:
		c.store.Invalidate(KeyForTypes())
		removed = c.store.InvalidatePrefix(PageKeyPrefix)
	case catalog.All:
		removed = c.store.Clear()
	default:
		c.logger.Warn("Unknown change scope, clearing catalog cache", zap.Stringer("scope", scope))
		removed = c.store.Clear()
	}

	span.SetAttributes(attribute.Int("cache.removed", removed))
	if c.observer != nil {
		c.observer.CacheInvalidated(scope.String(), removed)
	}
	c.logger.Debug("Catalog cache invalidated",
		zap.Stringer("scope", scope),
		zap.String("mode", string(mode)),
		zap.Int("removed", removed),
	)
}

func (c *CatalogCache) startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("cache.key", key)))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
