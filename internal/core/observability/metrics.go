// Package observability holds the request and store-query collectors shared by
// the HTTP layer and the executor.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// collectors are created unregistered; the server registers them with the
// metrics provider when metrics are enabled.
var factory = promauto.With(nil)

var (
	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	storeQueryDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of store queries in seconds, connect to close.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"query", "outcome"},
	)

	responsesNotModified = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_responses_not_modified_total",
			Help: "Responses answered with 304 from a matching ETag.",
		},
		[]string{"route"},
	)
)

// Collectors lists everything this package records into.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		storeQueryDurationSeconds,
		responsesNotModified,
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveQuery records one executor call. outcome is "ok", "connect_error" or
// "query_error".
func ObserveQuery(query, outcome string, durationSeconds float64) {
	if query == "" {
		query = "unnamed"
	}
	storeQueryDurationSeconds.WithLabelValues(query, outcome).Observe(durationSeconds)
}

func IncNotModified(route string) {
	responsesNotModified.WithLabelValues(route).Inc()
}
