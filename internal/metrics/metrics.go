package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the CRM API.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	CustomerMutations *prometheus.CounterVec
	LoginAttempts     *prometheus.CounterVec
	RosterCacheHits   prometheus.Counter
	RosterCacheMisses prometheus.Counter
}

// New registers every collector on reg. Passing a fresh registry keeps
// tests independent of the process-wide default.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		CustomerMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "customers",
			Name:      "mutations_total",
			Help:      "Total number of customer writes by operation.",
		}, []string{"operation"}), // operation: create, update, delete
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by result.",
		}, []string{"result"}),
		RosterCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "users",
			Name:      "roster_cache_hits_total",
			Help:      "Total number of team roster cache hits.",
		}),
		RosterCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "users",
			Name:      "roster_cache_misses_total",
			Help:      "Total number of team roster cache misses.",
		}),
	}
}

// NewNop returns metrics registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
