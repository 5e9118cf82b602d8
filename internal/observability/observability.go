// Package observability defines thin vendor-hiding ports for logging,
// tracing, and metrics. Concrete implementations live under
// internal/infrastructure/observability; application code only sees these
// interfaces, so instruments are injected rather than instantiated inline.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is a thin wrapper to start spans without binding to a concrete
// tracer implementation.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

type Counter interface {
	Add(delta float64, labels ...Label)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
}

type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

// Telemetry bundles the instruments a component needs, keyed by metric name.
type Telemetry interface {
	Tracer() Tracer
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// Metric names registered by main and looked up by components.
const (
	MetricUsecaseRequests     = "checkout_usecase_requests_total"
	MetricUsecaseDuration     = "checkout_usecase_duration_seconds"
	MetricHTTPRequests        = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
)
