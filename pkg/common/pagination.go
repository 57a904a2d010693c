package common

import (
	"net/http"
	"strconv"

	apperrors "catalog-backend/pkg/errors"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PaginationParams are the paging values read from a request.
type PaginationParams struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// DefaultPaginationParams returns the first page with the default size.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		PageIndex: 0,
		PageSize:  DefaultPageSize,
	}
}

// ExtractPaginationParams reads pageIndex and pageSize from the query string.
// Missing values fall back to the defaults and oversize pages are capped.
// Range checks are left to the domain query.
func ExtractPaginationParams(r *http.Request) (PaginationParams, error) {
	params := DefaultPaginationParams()

	if raw := r.URL.Query().Get("pageIndex"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperrors.NewInvalidQueryError("pageIndex must be an integer, got %q", raw)
		}
		params.PageIndex = v
	}

	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperrors.NewInvalidQueryError("pageSize must be an integer, got %q", raw)
		}
		if v > MaxPageSize {
			v = MaxPageSize
		}
		params.PageSize = v
	}

	return params, nil
}

// ExtractOptionalID reads an optional integer filter. An absent or empty
// parameter yields nil.
func ExtractOptionalID(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.NewInvalidQueryError("%s must be an integer, got %q", name, raw)
	}
	return &v, nil
}

// CalculateTotalPages returns ceil(total / pageSize).
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// PaginationInfo describes where a page sits in the full result set.
type PaginationInfo struct {
	ActualPage   int    `json:"actualPage"`
	ItemsPerPage int    `json:"itemsPerPage"`
	TotalItems   int    `json:"totalItems"`
	TotalPages   int    `json:"totalPages"`
	HasNext      bool   `json:"hasNext"`
	HasPrev      bool   `json:"hasPrev"`
	Next         string `json:"next"`
	Previous     string `json:"previous"`
}

// BuildPaginationMeta builds pagination metadata for a zero-based page.
// itemsOnPage is the number of items actually returned for that page.
func BuildPaginationMeta(pageIndex, itemsOnPage, total, pageSize int) PaginationInfo {
	totalPages := CalculateTotalPages(total, pageSize)
	info := PaginationInfo{
		ActualPage:   pageIndex,
		ItemsPerPage: itemsOnPage,
		TotalItems:   total,
		TotalPages:   totalPages,
		HasNext:      pageIndex < totalPages-1,
		HasPrev:      pageIndex > 0,
	}
	if !info.HasNext {
		info.Next = "is-disabled"
	}
	if !info.HasPrev {
		info.Previous = "is-disabled"
	}
	return info
}
