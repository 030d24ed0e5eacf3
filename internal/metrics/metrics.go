// Package metrics holds the prometheus collectors of the advisor. Every recording
// method is safe to call on a nil *Collector so components can run unmetered in
// tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "advisor"

// Collector holds all prometheus metrics of the agent on its own registry.
type Collector struct {
	registry *prometheus.Registry

	cacheLookups  *prometheus.CounterVec
	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	llmRequests   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by resource and outcome (hit, miss, stale).",
		}, []string{"resource", "outcome"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_fetch_attempts_total",
			Help:      "Backend fetch attempts by resource, verb, decode stage and outcome.",
		}, []string{"resource", "verb", "stage", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_fetch_duration_seconds",
			Help:      "Duration of a full resource fetch including fallbacks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Chat completion requests by phase and outcome.",
		}, []string{"phase", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.cacheLookups,
		c.fetchAttempts,
		c.fetchDuration,
		c.toolCalls,
		c.llmRequests,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// Handler exposes the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry is exposed for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) CacheLookup(resource, outcome string) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(resource, outcome).Inc()
}

func (c *Collector) FetchAttempt(resource, verb, stage, outcome string) {
	if c == nil {
		return
	}
	c.fetchAttempts.WithLabelValues(resource, verb, stage, outcome).Inc()
}

func (c *Collector) FetchDuration(resource string, d time.Duration) {
	if c == nil {
		return
	}
	c.fetchDuration.WithLabelValues(resource).Observe(d.Seconds())
}

func (c *Collector) ToolCall(tool, outcome string) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (c *Collector) LLMRequest(phase, outcome string) {
	if c == nil {
		return
	}
	c.llmRequests.WithLabelValues(phase, outcome).Inc()
}

func (c *Collector) HTTPRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
