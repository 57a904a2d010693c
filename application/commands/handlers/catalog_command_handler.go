package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalog-backend/application/commands"
	"catalog-backend/application/commands/bus"
	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
)

// CatalogCommandHandler applies catalog writes. After each write commits
// it invalidates the affected cache scope and then publishes CatalogChanged.
type CatalogCommandHandler struct {
	writer      ports.CatalogWriter
	invalidator ports.CatalogInvalidator
	publisher   ports.EventPublisher
	now         func() time.Time
	logger      *zap.Logger
}

// NewCatalogCommandHandler creates a new command handler
func NewCatalogCommandHandler(
	writer ports.CatalogWriter,
	invalidator ports.CatalogInvalidator,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *CatalogCommandHandler {
	return &CatalogCommandHandler{
		writer:      writer,
		invalidator: invalidator,
		publisher:   publisher,
		now:         time.Now,
		logger:      logger,
	}
}

// Register binds every catalog command to this handler.
func (h *CatalogCommandHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		commands.CreateCatalogItemCommand{},
		commands.UpdateCatalogItemCommand{},
		commands.DeleteCatalogItemCommand{},
		commands.CreateCatalogBrandCommand{},
		commands.UpdateCatalogBrandCommand{},
		commands.DeleteCatalogBrandCommand{},
		commands.CreateCatalogTypeCommand{},
		commands.UpdateCatalogTypeCommand{},
		commands.DeleteCatalogTypeCommand{},
		commands.InvalidateCacheCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements bus.CommandHandler
func (h *CatalogCommandHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	switch c := cmd.(type) {
	case commands.CreateCatalogItemCommand:
		return h.CreateItem(ctx, c)
	case commands.UpdateCatalogItemCommand:
		return nil, h.UpdateItem(ctx, c)
	case commands.DeleteCatalogItemCommand:
		return nil, h.DeleteItem(ctx, c)
	case commands.CreateCatalogBrandCommand:
		return h.CreateBrand(ctx, c)
	case commands.UpdateCatalogBrandCommand:
		return nil, h.UpdateBrand(ctx, c)
	case commands.DeleteCatalogBrandCommand:
		return nil, h.DeleteBrand(ctx, c)
	case commands.CreateCatalogTypeCommand:
		return h.CreateType(ctx, c)
	case commands.UpdateCatalogTypeCommand:
		return nil, h.UpdateType(ctx, c)
	case commands.DeleteCatalogTypeCommand:
		return nil, h.DeleteType(ctx, c)
	case commands.InvalidateCacheCommand:
		return nil, h.InvalidateCache(ctx, c)
	default:
		return nil, fmt.Errorf("unsupported command type %T", cmd)
	}
}

func (h *CatalogCommandHandler) CreateItem(ctx context.Context, cmd commands.CreateCatalogItemCommand) (catalog.CatalogItem, error) {
	item, err := h.writer.CreateItem(ctx, cmd.Item)
	if err != nil {
		return catalog.CatalogItem{}, err
	}
	h.committed(ctx, events.EntityItem, item.ID, events.ActionCreated)
	return item, nil
}

func (h *CatalogCommandHandler) UpdateItem(ctx context.Context, cmd commands.UpdateCatalogItemCommand) error {
	if err := h.writer.UpdateItem(ctx, cmd.Item); err != nil {
		return err
	}
	h.committed(ctx, events.EntityItem, cmd.Item.ID, events.ActionUpdated)
	return nil
}

func (h *CatalogCommandHandler) DeleteItem(ctx context.Context, cmd commands.DeleteCatalogItemCommand) error {
	if err := h.writer.DeleteItem(ctx, cmd.ID); err != nil {
		return err
	}
	h.committed(ctx, events.EntityItem, cmd.ID, events.ActionDeleted)
	return nil
}

func (h *CatalogCommandHandler) CreateBrand(ctx context.Context, cmd commands.CreateCatalogBrandCommand) (catalog.CatalogBrand, error) {
	brand, err := h.writer.CreateBrand(ctx, cmd.Brand)
	if err != nil {
		return catalog.CatalogBrand{}, err
	}
	h.committed(ctx, events.EntityBrand, brand.ID, events.ActionCreated)
	return brand, nil
}

func (h *CatalogCommandHandler) UpdateBrand(ctx context.Context, cmd commands.UpdateCatalogBrandCommand) error {
	if err := h.writer.UpdateBrand(ctx, cmd.Brand); err != nil {
		return err
	}
	h.committed(ctx, events.EntityBrand, cmd.Brand.ID, events.ActionUpdated)
	return nil
}

func (h *CatalogCommandHandler) DeleteBrand(ctx context.Context, cmd commands.DeleteCatalogBrandCommand) error {
	if err := h.writer.DeleteBrand(ctx, cmd.ID); err != nil {
		return err
	}
	h.committed(ctx, events.EntityBrand, cmd.ID, events.ActionDeleted)
	return nil
}

func (h *CatalogCommandHandler) CreateType(ctx context.Context, cmd commands.CreateCatalogTypeCommand) (catalog.CatalogType, error) {
	t, err := h.writer.CreateType(ctx, cmd.Type)
	if err != nil {
		return catalog.CatalogType{}, err
	}
	h.committed(ctx, events.EntityType, t.ID, events.ActionCreated)
	return t, nil
}

func (h *CatalogCommandHandler) UpdateType(ctx context.Context, cmd commands.UpdateCatalogTypeCommand) error {
	if err := h.writer.UpdateType(ctx, cmd.Type); err != nil {
		return err
	}
	h.committed(ctx, events.EntityType, cmd.Type.ID, events.ActionUpdated)
	return nil
}

func (h *CatalogCommandHandler) DeleteType(ctx context.Context, cmd commands.DeleteCatalogTypeCommand) error {
	if err := h.writer.DeleteType(ctx, cmd.ID); err != nil {
		return err
	}
	h.committed(ctx, events.EntityType, cmd.ID, events.ActionDeleted)
	return nil
}

// InvalidateCache evicts the requested scope and announces it.
func (h *CatalogCommandHandler) InvalidateCache(ctx context.Context, cmd commands.InvalidateCacheCommand) error {
	h.invalidator.OnCatalogChanged(ctx, cmd.Scope)
	h.publish(ctx, events.NewCatalogChanged(cmd.Scope, events.EntityCache, 0, events.ActionInvalidated, h.now()))
	return nil
}

func (h *CatalogCommandHandler) committed(ctx context.Context, entity events.EntityKind, id int, action events.Action) {
	scope := events.ScopeFor(entity)
	h.invalidator.OnCatalogChanged(ctx, scope)
	h.publish(ctx, events.NewCatalogChanged(scope, entity, id, action, h.now()))
}

// publish never fails the command; the write has already committed.
func (h *CatalogCommandHandler) publish(ctx context.Context, evt events.CatalogChanged) {
	if err := h.publisher.Publish(ctx, evt); err != nil {
		h.logger.Error("Failed to publish catalog event",
			zap.String("event_id", evt.EventID),
			zap.String("aggregate_id", evt.AggregateID),
			zap.Stringer("scope", evt.Scope),
			zap.Error(err),
		)
	}
}
