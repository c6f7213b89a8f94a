package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// Console HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Upstream moderation API metrics
	IncrementUpstreamCalls(operation, outcome string)
	RecordUpstreamLatency(operation string, duration time.Duration)

	// List cache metrics
	IncrementListCacheLookups(result string)

	// Decision metrics
	IncrementDecisions(action, outcome string)
	IncrementRejectValidationFailures()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementUpstreamCalls(operation, outcome string) {
	UpstreamCalls.WithLabelValues(operation, outcome).Inc()
}

func (r *PrometheusRegistry) RecordUpstreamLatency(operation string, duration time.Duration) {
	UpstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementListCacheLookups(result string) {
	ListCacheLookups.WithLabelValues(result).Inc()
}

func (r *PrometheusRegistry) IncrementDecisions(action, outcome string) {
	DecisionCount.WithLabelValues(action, outcome).Inc()
}

func (r *PrometheusRegistry) IncrementRejectValidationFailures() {
	RejectValidationFailures.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementUpstreamCalls(operation, outcome string)                     {}
func (r *NoOpRegistry) RecordUpstreamLatency(operation string, duration time.Duration)       {}
func (r *NoOpRegistry) IncrementListCacheLookups(result string)                              {}
func (r *NoOpRegistry) IncrementDecisions(action, outcome string)                            {}
func (r *NoOpRegistry) IncrementRejectValidationFailures()                                   {}
