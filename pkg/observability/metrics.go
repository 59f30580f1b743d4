package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Every method
// is safe on a nil receiver so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Canvas metrics
	Mutations        *prometheus.CounterVec
	PersistFailures  *prometheus.CounterVec
	PersistDuration  *prometheus.HistogramVec
	ActiveWorkspaces prometheus.Gauge

	// Query metrics
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Provider metrics
	ChatRequests      *prometheus.CounterVec
	EmbeddingRequests *prometheus.CounterVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter

	// Smart View metrics
	SmartViewDuration prometheus.Histogram
	SmartViewClusters prometheus.Histogram
}

// NewCollector creates a collector on its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
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
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canvas_mutations_total",
			Help:      "Canvas mutations by operation and outcome",
		}, []string{"operation", "status"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canvas_persist_failures_total",
			Help:      "Failed background saves of canvas documents",
		}, []string{"backend"}),
		PersistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "canvas_persist_duration_seconds",
			Help:      "Duration of canvas document saves",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		ActiveWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workspaces",
			Help:      "Workspace canvases held in memory",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Read queries by type and outcome",
		}, []string{"query", "status"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Read query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat completions by provider and outcome",
		}, []string{"provider", "status"}),
		EmbeddingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding requests by provider and outcome",
		}, []string{"provider", "status"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_hits_total",
			Help:      "Embedding cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_misses_total",
			Help:      "Embedding cache misses",
		}),
		SmartViewDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "smart_view_duration_seconds",
			Help:      "End to end Smart View generation time",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SmartViewClusters: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "smart_view_clusters",
			Help:      "Number of clusters produced per Smart View run",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.PersistFailures,
		c.PersistDuration,
		c.ActiveWorkspaces,
		c.Queries,
		c.QueryDuration,
		c.ChatRequests,
		c.EmbeddingRequests,
		c.CacheHits,
		c.CacheMisses,
		c.SmartViewDuration,
		c.SmartViewClusters,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordMutation counts a canvas operation
func (c *Collector) RecordMutation(operation string, err error) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordPersist records a background save
func (c *Collector) RecordPersist(backend string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.PersistDuration.WithLabelValues(backend).Observe(d.Seconds())
	if err != nil {
		c.PersistFailures.WithLabelValues(backend).Inc()
	}
}

// SetActiveWorkspaces sets the number of loaded canvases
func (c *Collector) SetActiveWorkspaces(n int) {
	if c == nil {
		return
	}
	c.ActiveWorkspaces.Set(float64(n))
}

// RecordQuery records one read query
func (c *Collector) RecordQuery(name string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.Queries.WithLabelValues(name, outcome(err)).Inc()
	c.QueryDuration.WithLabelValues(name).Observe(d.Seconds())
}

// RecordChat counts a chat completion
func (c *Collector) RecordChat(provider string, err error) {
	if c == nil {
		return
	}
	c.ChatRequests.WithLabelValues(provider, outcome(err)).Inc()
}

// RecordEmbedding counts an embedding request
func (c *Collector) RecordEmbedding(provider string, err error) {
	if c == nil {
		return
	}
	c.EmbeddingRequests.WithLabelValues(provider, outcome(err)).Inc()
}

// RecordCache counts an embedding cache lookup
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
	} else {
		c.CacheMisses.Inc()
	}
}

// RecordSmartView records one Smart View run
func (c *Collector) RecordSmartView(d time.Duration, clusters int) {
	if c == nil {
		return
	}
	c.SmartViewDuration.Observe(d.Seconds())
	c.SmartViewClusters.Observe(float64(clusters))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
