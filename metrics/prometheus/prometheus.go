// Package prometheus implements metrics.Collector on top of
// client_golang. It is a separate package so importing cachegate never
// pulls in Prometheus unless the caller wants it.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sandrolain/cachegate/metrics"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	cacheOps       *prometheus.CounterVec
	cacheOpSeconds *prometheus.HistogramVec
	entrySize      *prometheus.GaugeVec
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	staleServed    *prometheus.CounterVec
}

// Config configures NewCollector.
type Config struct {
	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Namespace defaults to "cachegate".
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
}

// NewCollector registers metrics against prometheus.DefaultRegisterer.
func NewCollector() *Collector {
	return NewCollectorWithConfig(Config{})
}

// NewCollectorWithRegistry registers metrics against reg.
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	return NewCollectorWithConfig(Config{Registry: reg})
}

// NewCollectorWithConfig is the fully-configurable constructor.
func NewCollectorWithConfig(cfg Config) *Collector {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "cachegate"
	}

	factory := promauto.With(cfg.Registry)

	return &Collector{
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   cfg.Subsystem,
				Name:        "store_operations_total",
				Help:        "Total number of metastore/entitystore operations.",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"operation", "backend", "result"},
		),
		cacheOpSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   cfg.Subsystem,
				Name:        "store_operation_duration_seconds",
				Help:        "Duration of metastore/entitystore operations.",
				Buckets:     []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"operation", "backend"},
		),
		entrySize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   cfg.Subsystem,
				Name:        "entry_size_bytes",
				Help:        "Size in bytes of the most recently stored entry.",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"backend"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   cfg.Subsystem,
				Name:        "requests_total",
				Help:        "Total number of requests served through the cache handler.",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"method", "cache_status", "status_code"},
		),
		requestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   cfg.Subsystem,
				Name:        "request_duration_seconds",
				Help:        "Duration of requests served through the cache handler.",
				Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5, 10, 30},
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"method", "cache_status"},
		),
		staleServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   cfg.Subsystem,
				Name:        "stale_served_total",
				Help:        "Total number of stale-while-revalidate/stale-if-error serves.",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"reason"},
		),
	}
}

func (c *Collector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
	c.cacheOps.WithLabelValues(operation, backend, result).Inc()
	c.cacheOpSeconds.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func (c *Collector) RecordEntrySize(backend string, sizeBytes int64) {
	c.entrySize.WithLabelValues(backend).Set(float64(sizeBytes))
}

func (c *Collector) RecordRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(method, cacheStatus, strconv.Itoa(statusCode)).Inc()
	c.requestSeconds.WithLabelValues(method, cacheStatus).Observe(duration.Seconds())
}

func (c *Collector) RecordStaleServed(reason string) {
	c.staleServed.WithLabelValues(reason).Inc()
}

var _ metrics.Collector = (*Collector)(nil)
