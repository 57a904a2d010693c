package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-backend/application/queries"
	querybus "catalog-backend/application/queries/bus"
	"catalog-backend/pkg/common"
	apperrors "catalog-backend/pkg/errors"
)

// CatalogHandler serves the catalog read endpoints.
type CatalogHandler struct {
	queryBus *querybus.QueryBus
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(queryBus *querybus.QueryBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		logger:   logger,
	}
}

// GetItems handles GET /catalog/items
func (h *CatalogHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	query, err := pageQueryFromRequest(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetCatalogItemsQuery{GetCatalogPageQuery: query})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetItem handles GET /catalog/items/{id}
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewInvalidQueryError("id must be an integer, got %q", chi.URLParam(r, "id")))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetCatalogItemQuery{ID: id})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetIndex handles GET /catalog/index
func (h *CatalogHandler) GetIndex(w http.ResponseWriter, r *http.Request) {
	query, err := pageQueryFromRequest(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetBrands handles GET /catalog/brands
func (h *CatalogHandler) GetBrands(w http.ResponseWriter, r *http.Request) {
	selected, err := common.ExtractOptionalID(r, "selected")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListBrandsQuery{SelectedID: selected})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetTypes handles GET /catalog/types
func (h *CatalogHandler) GetTypes(w http.ResponseWriter, r *http.Request) {
	selected, err := common.ExtractOptionalID(r, "selected")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListTypesQuery{SelectedID: selected})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func pageQueryFromRequest(r *http.Request) (queries.GetCatalogPageQuery, error) {
	params, err := common.ExtractPaginationParams(r)
	if err != nil {
		return queries.GetCatalogPageQuery{}, err
	}
	brandID, err := common.ExtractOptionalID(r, "brandId")
	if err != nil {
		return queries.GetCatalogPageQuery{}, err
	}
	typeID, err := common.ExtractOptionalID(r, "typeId")
	if err != nil {
		return queries.GetCatalogPageQuery{}, err
	}
	return queries.GetCatalogPageQuery{
		PageIndex: params.PageIndex,
		PageSize:  params.PageSize,
		BrandID:   brandID,
		TypeID:    typeID,
	}, nil
}
