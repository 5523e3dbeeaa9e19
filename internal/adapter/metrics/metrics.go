package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds all Prometheus metrics for the gateway.
// A nil *GatewayMetrics is valid and records nothing.
type GatewayMetrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	AuthFailures     *prometheus.CounterVec
	SignupSteps      *prometheus.CounterVec
	TokenCacheHits   prometheus.Counter
	TokenCacheMisses prometheus.Counter
	PhoneCacheHits   prometheus.Counter
	PhoneCacheMisses prometheus.Counter
	RateLimited      *prometheus.CounterVec
}

// NewGatewayMetrics initializes the metrics and registers them with reg.
// Passing prometheus.DefaultRegisterer exposes them on promhttp.Handler().
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	f := promauto.With(reg)
	return &GatewayMetrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tenant_gateway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total number of rejected authentications by reason.",
		}, []string{"reason"}),
		SignupSteps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "signup",
			Name:      "steps_total",
			Help:      "Signup step outcomes.",
		}, []string{"step", "outcome"}), // outcome: ok, failed, compensated
		TokenCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "auth",
			Name:      "token_cache_hits_total",
			Help:      "Total number of access token cache hits.",
		}),
		TokenCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "auth",
			Name:      "token_cache_misses_total",
			Help:      "Total number of access token cache misses.",
		}),
		PhoneCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "phone",
			Name:      "cache_hits_total",
			Help:      "Total number of phone-to-tenant cache hits.",
		}),
		PhoneCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "phone",
			Name:      "cache_misses_total",
			Help:      "Total number of phone-to-tenant cache misses.",
		}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenant_gateway",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
}

func (m *GatewayMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *GatewayMetrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *GatewayMetrics) SignupStep(step, outcome string) {
	if m == nil {
		return
	}
	m.SignupSteps.WithLabelValues(step, outcome).Inc()
}

func (m *GatewayMetrics) TokenCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.TokenCacheHits.Inc()
		return
	}
	m.TokenCacheMisses.Inc()
}

func (m *GatewayMetrics) PhoneCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.PhoneCacheHits.Inc()
		return
	}
	m.PhoneCacheMisses.Inc()
}

func (m *GatewayMetrics) RateLimit(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}
