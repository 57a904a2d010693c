package rest

import (
	"context"
	"net/http"

	"catalog-backend/infrastructure/di"
)

// NewHandler builds the router for a wired container.
func NewHandler(container *di.Container) http.Handler {
	cfg := container.Config
	opts := Options{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Debug:          cfg.IsDevelopment(),
		Ready: func(ctx context.Context) error {
			_, err := container.ReadStore.AllTypes(ctx)
			return err
		},
	}
	if cfg.EnableMetrics {
		opts.MetricsHandler = container.Metrics.Handler()
		opts.Recorder = container.Metrics
	}

	return NewRouter(container.CommandBus, container.QueryBus, opts, container.Logger).Setup()
}
