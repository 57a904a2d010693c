package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-backend/application/commands"
	"catalog-backend/application/commands/bus"
	"catalog-backend/domain/catalog"
	"catalog-backend/pkg/common"
	apperrors "catalog-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

// CatalogAdminHandler serves the catalog write endpoints.
type CatalogAdminHandler struct {
	commandBus *bus.CommandBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewCatalogAdminHandler creates a new admin handler
func NewCatalogAdminHandler(commandBus *bus.CommandBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *CatalogAdminHandler {
	return &CatalogAdminHandler{
		commandBus: commandBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreateItem handles POST /catalog/items
func (h *CatalogAdminHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item catalog.CatalogItem
	if !h.decode(w, r, &item) {
		return
	}
	h.create(w, r, commands.CreateCatalogItemCommand{Item: item})
}

// UpdateItem handles PUT /catalog/items/{id}
func (h *CatalogAdminHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var item catalog.CatalogItem
	id, ok := h.idParam(w, r)
	if !ok || !h.decode(w, r, &item) {
		return
	}
	item.ID = id
	h.send(w, r, commands.UpdateCatalogItemCommand{Item: item})
}

// DeleteItem handles DELETE /catalog/items/{id}
func (h *CatalogAdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.idParam(w, r); ok {
		h.send(w, r, commands.DeleteCatalogItemCommand{ID: id})
	}
}

// CreateBrand handles POST /catalog/brands
func (h *CatalogAdminHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var brand catalog.CatalogBrand
	if !h.decode(w, r, &brand) {
		return
	}
	h.create(w, r, commands.CreateCatalogBrandCommand{Brand: brand})
}

// UpdateBrand handles PUT /catalog/brands/{id}
func (h *CatalogAdminHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	var brand catalog.CatalogBrand
	id, ok := h.idParam(w, r)
	if !ok || !h.decode(w, r, &brand) {
		return
	}
	brand.ID = id
	h.send(w, r, commands.UpdateCatalogBrandCommand{Brand: brand})
}

// DeleteBrand handles DELETE /catalog/brands/{id}
func (h *CatalogAdminHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.idParam(w, r); ok {
		h.send(w, r, commands.DeleteCatalogBrandCommand{ID: id})
	}
}

// CreateType handles POST /catalog/types
func (h *CatalogAdminHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	var t catalog.CatalogType
	if !h.decode(w, r, &t) {
		return
	}
	h.create(w, r, commands.CreateCatalogTypeCommand{Type: t})
}

// UpdateType handles PUT /catalog/types/{id}
func (h *CatalogAdminHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	var t catalog.CatalogType
	id, ok := h.idParam(w, r)
	if !ok || !h.decode(w, r, &t) {
		return
	}
	t.ID = id
	h.send(w, r, commands.UpdateCatalogTypeCommand{Type: t})
}

// DeleteType handles DELETE /catalog/types/{id}
func (h *CatalogAdminHandler) DeleteType(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.idParam(w, r); ok {
		h.send(w, r, commands.DeleteCatalogTypeCommand{ID: id})
	}
}

// InvalidateCache handles POST /catalog/cache/invalidate?scope=
func (h *CatalogAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	scope, err := catalog.ParseChangeScope(r.URL.Query().Get("scope"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewInvalidQueryError("%s", err.Error()))
		return
	}

	h.logger.Info("Cache invalidation requested",
		zap.Stringer("scope", scope),
		zap.String("remoteAddr", r.RemoteAddr),
	)
	h.send(w, r, commands.InvalidateCacheCommand{Scope: scope})
}

func (h *CatalogAdminHandler) create(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

func (h *CatalogAdminHandler) send(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	if _, err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

func (h *CatalogAdminHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body").
			WithCode(apperrors.CodeInvalidEntity).
			WithCause(err))
		return false
	}
	return true
}

func (h *CatalogAdminHandler) idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		h.errors.Handle(w, r, apperrors.NewValidationError("id must be a positive integer").
			WithDetail("id", raw))
		return 0, false
	}
	return id, true
}
