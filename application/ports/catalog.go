package ports

import (
	"context"

	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
)

// CatalogStore is the authoritative source of catalog data.
// This is a port in hexagonal architecture; the cache decorates it.
type CatalogStore interface {
	// QueryPage returns the page of items matching q ordered by id
	// ascending, together with the total number of matching items.
	QueryPage(ctx context.Context, q catalog.PageQuery) ([]catalog.CatalogItem, int, error)

	// AllBrands returns every brand.
	AllBrands(ctx context.Context) ([]catalog.CatalogBrand, error)

	// AllTypes returns every type.
	AllTypes(ctx context.Context) ([]catalog.CatalogType, error)
}

// ItemLookup reads a single item straight from the store.
type ItemLookup interface {
	GetItem(ctx context.Context, id int) (catalog.CatalogItem, error)
}

// CatalogWriter persists catalog mutations. IDs are assigned by the store
// on create.
type CatalogWriter interface {
	ItemLookup
	CreateItem(ctx context.Context, item catalog.CatalogItem) (catalog.CatalogItem, error)
	UpdateItem(ctx context.Context, item catalog.CatalogItem) error
	DeleteItem(ctx context.Context, id int) error

	CreateBrand(ctx context.Context, brand catalog.CatalogBrand) (catalog.CatalogBrand, error)
	UpdateBrand(ctx context.Context, brand catalog.CatalogBrand) error
	DeleteBrand(ctx context.Context, id int) error

	CreateType(ctx context.Context, t catalog.CatalogType) (catalog.CatalogType, error)
	UpdateType(ctx context.Context, t catalog.CatalogType) error
	DeleteType(ctx context.Context, id int) error
}

// CatalogRepository is a store that supports both reads and writes.
type CatalogRepository interface {
	CatalogStore
	CatalogWriter
}

// CatalogReader is the read surface served to the presentation layer.
type CatalogReader interface {
	GetPage(ctx context.Context, q catalog.PageQuery) (catalog.PagedResult[catalog.CatalogItem], error)
	GetBrands(ctx context.Context) ([]catalog.CatalogBrand, error)
	GetTypes(ctx context.Context) ([]catalog.CatalogType, error)
}

// CatalogInvalidator is called by the write path after a change commits.
type CatalogInvalidator interface {
	OnCatalogChanged(ctx context.Context, scope catalog.ChangeScope)
}

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
