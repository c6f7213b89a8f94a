package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total console requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modconsole_requests_total",
			Help: "Total console API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// console request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modconsole_request_duration_seconds",
			Help:    "Histogram of console request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// upstream moderation API calls, labelled by operation and outcome
	UpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modconsole_upstream_calls_total",
			Help: "Total calls to the moderation API",
		},
		[]string{"operation", "outcome"},
	)

	// upstream call latency per operation
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modconsole_upstream_duration_seconds",
			Help:    "Duration of moderation API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// list cache lookups labelled by result (hit/miss/stale)
	ListCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modconsole_list_cache_lookups_total",
			Help: "Total list cache lookups",
		},
		[]string{"result"},
	)

	// moderation decisions dispatched, labelled by action and outcome
	DecisionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modconsole_decisions_total",
			Help: "Total moderation decisions dispatched",
		},
		[]string{"action", "outcome"},
	)

	// reject confirmations refused by local validation
	RejectValidationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modconsole_reject_validation_failures_total",
			Help: "Total reject confirmations refused before any network call",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		UpstreamCalls,
		UpstreamLatency,
		ListCacheLookups,
		DecisionCount,
		RejectValidationFailures,
	)
}
