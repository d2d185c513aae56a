// Package metrics provides Prometheus metrics for FleetWatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "fleetwatch"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)
)

// Ingestion metrics
var (
	// EventsIngested counts durably recorded inspection events by state.
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total inspection events durably recorded",
		},
		[]string{"state"},
	)

	// AlertsCreated counts alerts created by kind.
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "alerts_created_total",
			Help:      "Total alerts created by the rule engine",
		},
		[]string{"kind"},
	)

	// AlertsSuppressed counts proposals suppressed by an existing
	// unresolved alert of the same kind.
	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "alerts_suppressed_total",
			Help:      "Total alert proposals suppressed by deduplication",
		},
		[]string{"kind"},
	)

	// AdvisoryFailures counts swallowed failures in the advisory half of
	// the pipeline, by stage (alerting, broadcast).
	AdvisoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "advisory_failures_total",
			Help:      "Total swallowed failures in the advisory pipeline stages",
		},
		[]string{"stage"},
	)
)

// Hub metrics
var (
	// HubConnections tracks currently registered viewer connections.
	HubConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections",
			Help:      "Number of registered live viewer connections",
		},
	)

	// HubMessagesSent counts successful per-connection deliveries.
	HubMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_sent_total",
			Help:      "Total notifications delivered to viewer connections",
		},
	)

	// HubSendFailures counts per-connection send failures and timeouts.
	HubSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_failures_total",
			Help:      "Total per-connection send failures, each evicting the connection",
		},
	)
)

// Auth metrics
var (
	// LoginAttempts counts login attempts by outcome.
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total login attempts by outcome",
		},
		[]string{"outcome"},
	)
)
