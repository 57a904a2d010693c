// Package resilience wraps catalog stores with failure isolation.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// BreakerConfig configures the circuit breaker around the catalog store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips at an 80% failure rate over at least five
// requests and tries again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "catalog-store",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerCatalogStore fails fast with an Unavailable error while the
// underlying store keeps failing.
type BreakerCatalogStore struct {
	inner  ports.CatalogStore
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *zap.Logger
}

var _ ports.CatalogStore = (*BreakerCatalogStore)(nil)

// NewBreakerCatalogStore wraps inner.
func NewBreakerCatalogStore(inner ports.CatalogStore, cfg BreakerConfig, logger *zap.Logger) *BreakerCatalogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BreakerCatalogStore{inner: inner, name: cfg.Name, logger: logger}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isStoreHealthy,
	})
	return s
}

// State reports the breaker state.
func (s *BreakerCatalogStore) State() gobreaker.State {
	return s.cb.State()
}

// isStoreHealthy decides whether err says anything about store health.
// Caller mistakes and cancellations do not count against the store.
func isStoreHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return apperrors.IsValidation(err) || apperrors.IsNotFound(err) || apperrors.IsConflict(err)
}

func (s *BreakerCatalogStore) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Debug("Circuit breaker rejected store call", zap.String("breaker", s.name), zap.Error(err))
		return apperrors.NewUnavailableError(s.name).WithCause(err)
	}
	return err
}

type pageResult struct {
	items []catalog.CatalogItem
	total int
}

func (s *BreakerCatalogStore) QueryPage(ctx context.Context, q catalog.PageQuery) ([]catalog.CatalogItem, int, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		items, total, err := s.inner.QueryPage(ctx, q)
		return pageResult{items: items, total: total}, err
	})
	if err != nil {
		return nil, 0, s.translate(err)
	}
	res := out.(pageResult)
	return res.items, res.total, nil
}

func (s *BreakerCatalogStore) AllBrands(ctx context.Context) ([]catalog.CatalogBrand, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.AllBrands(ctx)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return out.([]catalog.CatalogBrand), nil
}

func (s *BreakerCatalogStore) AllTypes(ctx context.Context) ([]catalog.CatalogType, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.AllTypes(ctx)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return out.([]catalog.CatalogType), nil
}
