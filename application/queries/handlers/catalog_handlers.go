package handlers

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/application/queries"
	"catalog-backend/application/queries/bus"
	"catalog-backend/domain/catalog"
	"catalog-backend/pkg/common"
)

const allOptionText = "All"

// CatalogQueryHandler answers catalog read queries from a CatalogReader,
// normally the caching decorator.
type CatalogQueryHandler struct {
	reader ports.CatalogReader
	items  ports.ItemLookup
	logger *zap.Logger
}

// NewCatalogQueryHandler creates a new query handler
func NewCatalogQueryHandler(reader ports.CatalogReader, items ports.ItemLookup, logger *zap.Logger) *CatalogQueryHandler {
	return &CatalogQueryHandler{
		reader: reader,
		items:  items,
		logger: logger,
	}
}

// Register binds every catalog query to this handler.
func (h *CatalogQueryHandler) Register(b *bus.QueryBus) error {
	for _, q := range []bus.Query{
		queries.GetCatalogPageQuery{},
		queries.GetCatalogItemsQuery{},
		queries.GetCatalogItemQuery{},
		queries.ListBrandsQuery{},
		queries.ListTypesQuery{},
	} {
		if err := b.Register(q, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements bus.QueryHandler
func (h *CatalogQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetCatalogPageQuery:
		return h.GetCatalogPage(ctx, q)
	case queries.GetCatalogItemsQuery:
		return h.GetCatalogItems(ctx, q)
	case queries.GetCatalogItemQuery:
		return h.items.GetItem(ctx, q.ID)
	case queries.ListBrandsQuery:
		return h.ListBrands(ctx, q)
	case queries.ListTypesQuery:
		return h.ListTypes(ctx, q)
	default:
		return nil, fmt.Errorf("unsupported query type %T", query)
	}
}

// GetCatalogPage builds the catalog index view: one page of items plus the
// brand and type filters with the current selection marked.
func (h *CatalogQueryHandler) GetCatalogPage(ctx context.Context, q queries.GetCatalogPageQuery) (*queries.CatalogIndexView, error) {
	page, err := h.GetCatalogItems(ctx, queries.GetCatalogItemsQuery{GetCatalogPageQuery: q})
	if err != nil {
		return nil, err
	}
	brands, err := h.ListBrands(ctx, queries.ListBrandsQuery{SelectedID: q.BrandID})
	if err != nil {
		return nil, err
	}
	types, err := h.ListTypes(ctx, queries.ListTypesQuery{SelectedID: q.TypeID})
	if err != nil {
		return nil, err
	}

	return &queries.CatalogIndexView{
		Items:              page.Items,
		Brands:             brands,
		Types:              types,
		BrandFilterApplied: q.BrandID,
		TypesFilterApplied: q.TypeID,
		PaginationInfo:     page.Pagination,
	}, nil
}

// GetCatalogItems returns one page of items with pagination metadata.
func (h *CatalogQueryHandler) GetCatalogItems(ctx context.Context, q queries.GetCatalogItemsQuery) (*queries.CatalogItemsPage, error) {
	result, err := h.reader.GetPage(ctx, q.PageQuery())
	if err != nil {
		h.logger.Debug("Catalog page read failed",
			zap.Int("page_index", q.PageIndex),
			zap.Int("page_size", q.PageSize),
			zap.Error(err),
		)
		return nil, err
	}
	return &queries.CatalogItemsPage{
		Items:      result.Items,
		Pagination: common.BuildPaginationMeta(result.PageIndex, len(result.Items), result.TotalCount, result.PageSize),
	}, nil
}

// ListBrands returns the brand filter options.
func (h *CatalogQueryHandler) ListBrands(ctx context.Context, q queries.ListBrandsQuery) ([]queries.SelectOption, error) {
	brands, err := h.reader.GetBrands(ctx)
	if err != nil {
		return nil, err
	}
	return selectOptions(brands, q.SelectedID, func(b catalog.CatalogBrand) (int, string) {
		return b.ID, b.Brand
	}), nil
}

// ListTypes returns the type filter options.
func (h *CatalogQueryHandler) ListTypes(ctx context.Context, q queries.ListTypesQuery) ([]queries.SelectOption, error) {
	types, err := h.reader.GetTypes(ctx)
	if err != nil {
		return nil, err
	}
	return selectOptions(types, q.SelectedID, func(t catalog.CatalogType) (int, string) {
		return t.ID, t.Type
	}), nil
}

func selectOptions[T any](values []T, selected *int, describe func(T) (int, string)) []queries.SelectOption {
	options := make([]queries.SelectOption, 0, len(values)+1)
	options = append(options, queries.SelectOption{Text: allOptionText, Selected: selected == nil})
	for _, v := range values {
		id, text := describe(v)
		options = append(options, queries.SelectOption{
			Value:    strconv.Itoa(id),
			Text:     text,
			Selected: selected != nil && *selected == id,
		})
	}
	return options
}
