package queries

import (
	"catalog-backend/domain/catalog"
	"catalog-backend/pkg/common"
	apperrors "catalog-backend/pkg/errors"
)

// GetCatalogPageQuery asks for one page of the catalog index.
type GetCatalogPageQuery struct {
	PageIndex int
	PageSize  int
	BrandID   *int
	TypeID    *int
}

// PageQuery converts the query to its domain form.
func (q GetCatalogPageQuery) PageQuery() catalog.PageQuery {
	return catalog.NewPageQuery(q.PageIndex, q.PageSize, q.BrandID, q.TypeID)
}

// Validate validates the query
func (q GetCatalogPageQuery) Validate() error {
	return q.PageQuery().Validate()
}

// GetCatalogItemsQuery asks for one raw page of items, without the filter
// lists.
type GetCatalogItemsQuery struct {
	GetCatalogPageQuery
}

// GetCatalogItemQuery asks for one item by id. It bypasses the cache so an
// edit form always starts from committed data.
type GetCatalogItemQuery struct {
	ID int
}

func (q GetCatalogItemQuery) Validate() error {
	if q.ID <= 0 {
		return apperrors.NewInvalidQueryError("id must be positive, got %d", q.ID)
	}
	return nil
}

// ListBrandsQuery asks for the brand filter options. SelectedID marks the
// option to preselect; nil preselects "All".
type ListBrandsQuery struct {
	SelectedID *int
}

func (ListBrandsQuery) Validate() error { return nil }

// ListTypesQuery asks for the type filter options.
type ListTypesQuery struct {
	SelectedID *int
}

func (ListTypesQuery) Validate() error { return nil }

// SelectOption is one entry of a filter drop-down.
type SelectOption struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// CatalogIndexView is everything the catalog index page renders.
type CatalogIndexView struct {
	Items              []catalog.CatalogItem `json:"items"`
	Brands             []SelectOption        `json:"brands"`
	Types              []SelectOption        `json:"types"`
	BrandFilterApplied *int                  `json:"brandFilterApplied,omitempty"`
	TypesFilterApplied *int                  `json:"typesFilterApplied,omitempty"`
	PaginationInfo     common.PaginationInfo `json:"paginationInfo"`
}

// CatalogItemsPage is a raw page of items with its pagination metadata.
type CatalogItemsPage struct {
	Items      []catalog.CatalogItem `json:"items"`
	Pagination common.PaginationInfo `json:"pagination"`
}
