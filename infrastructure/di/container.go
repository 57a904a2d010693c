package di

import (
	"context"
	"errors"

	"go.uber.org/zap"

	commandbus "catalog-backend/application/commands/bus"
	"catalog-backend/application/ports"
	querybus "catalog-backend/application/queries/bus"
	"catalog-backend/infrastructure/cache"
	"catalog-backend/infrastructure/config"
	"catalog-backend/infrastructure/observability"
	pcache "catalog-backend/infrastructure/persistence/cache"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Repository   ports.CatalogRepository
	ReadStore    ports.CatalogStore
	CacheStore   *cache.Store
	CatalogCache *pcache.CatalogCache
	Publisher    ports.EventPublisher
	CommandBus   *commandbus.CommandBus
	QueryBus     *querybus.QueryBus
	Metrics      *observability.Collector
	Tracer       *observability.TracerProvider
}

// Start runs the background work: the expired-entry sweep and, when a
// policy file is configured, the policy watcher. Both stop with ctx.
func (c *Container) Start(ctx context.Context) error {
	c.CacheStore.StartCleanup(ctx, c.Config.CacheCleanupInterval)

	if c.Config.CacheConfigFile == "" {
		return nil
	}
	base, err := c.Config.CacheOptions()
	if err != nil {
		return err
	}
	watcher, err := config.NewPolicyWatcher(c.Config.CacheConfigFile, base, c.CatalogCache.UpdateOptions, c.Logger)
	if err != nil {
		return err
	}
	go watcher.Run(ctx)
	return nil
}

// Shutdown flushes telemetry and the logger.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.Tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Sync fails on stderr/stdout on some platforms; nothing to do about it.
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
