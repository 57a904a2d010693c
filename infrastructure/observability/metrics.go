package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalog-backend/infrastructure/cache"
)

// Collector holds the Prometheus metrics of the service on its own registry.
type Collector struct {
	registry  *prometheus.Registry
	namespace string

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheLoads         *prometheus.CounterVec
	CacheLoadDuration  prometheus.Histogram
	CacheEvictions     *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec

	// Bus metrics
	Queries  *prometheus.CounterVec
	Commands *prometheus.CounterVec
}

var _ cache.Observer = (*Collector)(nil)

// NewCollector creates and registers the metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of catalog cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of catalog cache misses",
		}),
		CacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_loads_total",
			Help:      "Catalog store loads triggered by cache misses",
		}, []string{"status"}),
		CacheLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_load_duration_seconds",
			Help:      "Duration of catalog store loads triggered by cache misses",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Cache entries removed, by reason",
		}, []string{"reason"}),
		CacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Catalog change notifications, by scope",
		}, []string{"scope"}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries dispatched through the query bus",
		}, []string{"query", "status"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched through the command bus",
		}, []string{"command", "status"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.CacheHits,
		c.CacheMisses,
		c.CacheLoads,
		c.CacheLoadDuration,
		c.CacheEvictions,
		c.CacheInvalidations,
		c.Queries,
		c.Commands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// TrackCacheEntries exposes the live entry count reported by entries.
func (c *Collector) TrackCacheEntries(entries func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "cache_entries",
		Help:      "Entries currently held by the catalog cache",
	}, func() float64 { return float64(entries()) }))
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordQuery records one query bus dispatch.
func (c *Collector) RecordQuery(name string, err error) {
	c.Queries.WithLabelValues(name, statusLabel(err)).Inc()
}

// RecordCommand records one command bus dispatch.
func (c *Collector) RecordCommand(name string, err error) {
	c.Commands.WithLabelValues(name, statusLabel(err)).Inc()
}

func (c *Collector) CacheHit(string)  { c.CacheHits.Inc() }
func (c *Collector) CacheMiss(string) { c.CacheMisses.Inc() }

func (c *Collector) CacheLoad(_ string, duration time.Duration, err error) {
	c.CacheLoads.WithLabelValues(statusLabel(err)).Inc()
	c.CacheLoadDuration.Observe(duration.Seconds())
}

func (c *Collector) CacheEvict(_ string, reason cache.EvictReason, count int) {
	c.CacheEvictions.WithLabelValues(string(reason)).Add(float64(count))
}

// CacheInvalidated counts catalog change notifications.
func (c *Collector) CacheInvalidated(scope string, _ int) {
	c.CacheInvalidations.WithLabelValues(scope).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
