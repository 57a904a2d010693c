package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"catalog-backend/application/commands/bus"
	querybus "catalog-backend/application/queries/bus"
	"catalog-backend/interfaces/http/rest/handlers"
	"catalog-backend/interfaces/http/rest/middleware"
	"catalog-backend/pkg/common"
	apperrors "catalog-backend/pkg/errors"
)

const readinessTimeout = 2 * time.Second

// Options toggles the optional parts of the router.
type Options struct {
	EnableCORS     bool
	AllowedOrigins []string
	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler
	// Recorder, when set, receives per-request metrics.
	Recorder middleware.RequestRecorder
	// Ready reports whether the catalog store can serve; nil means always ready.
	Ready func(ctx context.Context) error
	// Debug exposes internal error messages in responses.
	Debug bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(rt.logger, rt.opts.Debug)

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Recorder != nil {
		router.Use(middleware.Metrics(rt.opts.Recorder))
	}
	router.Use(errorHandler.Middleware)

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.MetricsHandler != nil {
		router.Handle("/metrics", rt.opts.MetricsHandler)
	}

	catalogHandler := handlers.NewCatalogHandler(rt.queryBus, errorHandler, rt.logger)
	adminHandler := handlers.NewCatalogAdminHandler(rt.commandBus, errorHandler, rt.logger)

	router.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/index", catalogHandler.GetIndex)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", catalogHandler.GetItems)
			r.Post("/", adminHandler.CreateItem)
			r.Get("/{id}", catalogHandler.GetItem)
			r.Put("/{id}", adminHandler.UpdateItem)
			r.Delete("/{id}", adminHandler.DeleteItem)
		})

		r.Route("/brands", func(r chi.Router) {
			r.Get("/", catalogHandler.GetBrands)
			r.Post("/", adminHandler.CreateBrand)
			r.Put("/{id}", adminHandler.UpdateBrand)
			r.Delete("/{id}", adminHandler.DeleteBrand)
		})

		r.Route("/types", func(r chi.Router) {
			r.Get("/", catalogHandler.GetTypes)
			r.Post("/", adminHandler.CreateType)
			r.Put("/{id}", adminHandler.UpdateType)
			r.Delete("/{id}", adminHandler.DeleteType)
		})

		r.Post("/cache/invalidate", adminHandler.InvalidateCache)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports 503 while the catalog store is failing.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
