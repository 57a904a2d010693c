package catalog

import (
	apperrors "catalog-backend/pkg/errors"
)

// PageQuery selects one page of catalog items. A nil filter means the
// dimension is not filtered.
type PageQuery struct {
	PageIndex int  `json:"pageIndex"`
	PageSize  int  `json:"pageSize"`
	BrandID   *int `json:"brandId,omitempty"`
	TypeID    *int `json:"typeId,omitempty"`
}

// NewPageQuery builds a query from optional filters.
func NewPageQuery(pageIndex, pageSize int, brandID, typeID *int) PageQuery {
	return PageQuery{
		PageIndex: pageIndex,
		PageSize:  pageSize,
		BrandID:   brandID,
		TypeID:    typeID,
	}
}

// Validate rejects queries no store could answer.
func (q PageQuery) Validate() error {
	if q.PageIndex < 0 {
		return apperrors.NewInvalidQueryError("pageIndex must not be negative, got %d", q.PageIndex)
	}
	if q.PageSize <= 0 {
		return apperrors.NewInvalidQueryError("pageSize must be positive, got %d", q.PageSize)
	}
	if q.BrandID != nil && *q.BrandID <= 0 {
		return apperrors.NewInvalidQueryError("brandId must be positive, got %d", *q.BrandID)
	}
	if q.TypeID != nil && *q.TypeID <= 0 {
		return apperrors.NewInvalidQueryError("typeId must be positive, got %d", *q.TypeID)
	}
	return nil
}

// PagedResult is one page of a filtered result set.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	PageIndex  int `json:"pageIndex"`
	PageSize   int `json:"pageSize"`
}

// TotalPages returns ceil(TotalCount / PageSize).
func (r PagedResult[T]) TotalPages() int {
	if r.PageSize <= 0 {
		return 0
	}
	pages := r.TotalCount / r.PageSize
	if r.TotalCount%r.PageSize != 0 {
		pages++
	}
	return pages
}

// Clone returns a copy whose item slice does not alias r's.
func (r PagedResult[T]) Clone() PagedResult[T] {
	out := r
	out.Items = make([]T, len(r.Items))
	copy(out.Items, r.Items)
	return out
}

// Paginate slices an already filtered and ordered result set. A page past
// the end yields no items but still reports the full count.
func Paginate[T any](all []T, q PageQuery) PagedResult[T] {
	result := PagedResult[T]{
		Items:      []T{},
		TotalCount: len(all),
		PageIndex:  q.PageIndex,
		PageSize:   q.PageSize,
	}
	if q.PageSize <= 0 || q.PageIndex < 0 || q.PageIndex >= result.TotalPages() {
		return result
	}
	// PageIndex < TotalPages keeps the product within len(all).
	start := q.PageIndex * q.PageSize
	end := len(all)
	if q.PageSize < end-start {
		end = start + q.PageSize
	}
	result.Items = append(result.Items, all[start:end]...)
	return result
}
