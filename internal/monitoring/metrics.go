package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brokerfit"

// Assessment workflow events counted by RecordAssessmentEvent.
const (
	EventCreated   = "created"
	EventValidated = "validated"
	EventBlocked   = "blocked"
	EventFinalized = "finalized"
	EventDiscarded = "discarded"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	cache *prometheus.CounterVec

	rateLimitBlocks      prometheus.Counter
	rateLimitRedisErrors prometheus.Counter
	rateLimitFallbacks   prometheus.Counter

	assessments   *prometheus.CounterVec
	overallScores prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		rateLimitBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_blocks_total",
			Help:      "Requests rejected by the IP rate limiter.",
		}),
		rateLimitRedisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_redis_errors_total",
			Help:      "Redis failures seen by the rate limiter.",
		}),
		rateLimitFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_fallback_total",
			Help:      "Decisions made by the in-memory fallback limiter.",
		}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_events_total",
			Help:      "Assessment workflow events.",
		}, []string{"event"}),
		overallScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finalized_overall_score",
			Help:      "Overall Broker-Fit Score of finalized assessments.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 12.5, 15},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.cache,
		m.rateLimitBlocks,
		m.rateLimitRedisErrors,
		m.rateLimitFallbacks,
		m.assessments,
		m.overallScores,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("hit").Inc()
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	if m == nil {
		return
	}
	m.rateLimitBlocks.Inc()
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	if m == nil {
		return
	}
	m.rateLimitRedisErrors.Inc()
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	if m == nil {
		return
	}
	m.rateLimitFallbacks.Inc()
}

// RecordAssessmentEvent counts a workflow event
func (m *Metrics) RecordAssessmentEvent(event string) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(event).Inc()
}

// ObserveFinalizedScore records the overall score of a finalized assessment
func (m *Metrics) ObserveFinalizedScore(score float64) {
	if m == nil {
		return
	}
	m.overallScores.Observe(score)
}
