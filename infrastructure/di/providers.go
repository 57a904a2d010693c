package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	commandbus "catalog-backend/application/commands/bus"
	commandhandlers "catalog-backend/application/commands/handlers"
	"catalog-backend/application/ports"
	querybus "catalog-backend/application/queries/bus"
	queryhandlers "catalog-backend/application/queries/handlers"
	"catalog-backend/infrastructure/cache"
	"catalog-backend/infrastructure/config"
	"catalog-backend/infrastructure/messaging/eventbridge"
	"catalog-backend/infrastructure/messaging/logging"
	"catalog-backend/infrastructure/observability"
	pcache "catalog-backend/infrastructure/persistence/cache"
	"catalog-backend/infrastructure/persistence/dynamodb"
	"catalog-backend/infrastructure/persistence/memory"
	"catalog-backend/infrastructure/persistence/resilience"
)

const metricsNamespace = "catalog"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client. DYNAMODB_ENDPOINT points
// it at DynamoDB Local.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCatalogRepository selects the authoritative store.
func ProvideCatalogRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) (ports.CatalogRepository, error) {
	switch cfg.StoreProvider {
	case config.StoreMemory:
		logger.Info("Using in-memory catalog store")
		return memory.NewSeededCatalogStore(logger), nil
	case config.StoreDynamoDB:
		logger.Info("Using DynamoDB catalog store", zap.String("table", cfg.DynamoDBTable))
		return dynamodb.NewCatalogStore(client, cfg.DynamoDBTable, logger), nil
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.StoreProvider)
	}
}

// ProvideReadStore is the store the cache reads through, behind a circuit
// breaker unless disabled.
func ProvideReadStore(repo ports.CatalogRepository, cfg *config.Config, logger *zap.Logger) ports.CatalogStore {
	if !cfg.BreakerEnabled {
		return repo
	}
	return resilience.NewBreakerCatalogStore(repo, cfg.BreakerConfig(), logger)
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracer installs the OTLP exporter when tracing is enabled. It
// returns nil otherwise; spans then go to the no-op global provider.
func ProvideTracer(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, "catalog-backend", cfg.Environment, cfg.OTLPEndpoint, cfg.TraceSampleRatio)
}

// ProvideCacheStore creates the expiring store behind the catalog cache.
func ProvideCacheStore(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) *cache.Store {
	store := cache.NewStore(cache.Config{
		MaxEntries:  cfg.CacheMaxEntries,
		Observer:    metrics,
		LoadTimeout: cfg.CacheLoadTimeout,
	}, logger)
	metrics.TrackCacheEntries(store.Len)
	return store
}

// ProvideCatalogCache creates the caching decorator. A policy file, when
// configured, overrides the environment values from the start.
func ProvideCatalogCache(
	readStore ports.CatalogStore,
	store *cache.Store,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*pcache.CatalogCache, error) {
	opts, err := cfg.CacheOptions()
	if err != nil {
		return nil, err
	}
	if cfg.CacheConfigFile != "" {
		if opts, err = config.LoadCachePolicy(cfg.CacheConfigFile, opts); err != nil {
			return nil, err
		}
	}

	c, err := pcache.NewCatalogCache(readStore, store, opts, logger)
	if err != nil {
		return nil, err
	}
	return c.WithInvalidationObserver(metrics), nil
}

// ProvideEventPublisher publishes to EventBridge when events are enabled
// and to the log otherwise.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return logging.NewPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideCommandBus wires the catalog write handlers.
func ProvideCommandBus(
	repo ports.CatalogRepository,
	catalogCache *pcache.CatalogCache,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*commandbus.CommandBus, error) {
	b := commandbus.NewCommandBus(
		commandbus.LoggingMiddleware(logger),
		commandbus.MetricsMiddleware(metrics),
	)
	handler := commandhandlers.NewCatalogCommandHandler(repo, catalogCache, publisher, logger)
	if err := handler.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideQueryBus wires the catalog read handlers over the cache.
func ProvideQueryBus(
	repo ports.CatalogRepository,
	catalogCache *pcache.CatalogCache,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	b := querybus.NewQueryBus(querybus.MetricsMiddleware(metrics))
	handler := queryhandlers.NewCatalogQueryHandler(catalogCache, repo, logger)
	if err := handler.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}
