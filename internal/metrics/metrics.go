// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total API requests by route and status.",
}, []string{"route", "status"})

// HTTPDuration tracks API latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "paycheck",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "API request latency in seconds.",
	Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
}, []string{"route"})

// ─── Engine ─────────────────────────────────────────────────────────────────

// Computations counts engine computations by view.
var Computations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "engine",
	Name:      "computations_total",
	Help:      "Total engine computations by view.",
}, []string{"view"})

// CacheLookups counts summary cache lookups by view and result (hit|miss).
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "cache",
	Name:      "lookups_total",
	Help:      "Summary cache lookups by view and result.",
}, []string{"view", "result"})

// SnapshotErrors counts failed consistent snapshot reads.
var SnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "store",
	Name:      "snapshot_errors_total",
	Help:      "Total snapshot reads that failed and were reported as transient.",
})

// ─── Payments ───────────────────────────────────────────────────────────────

// PaymentTransitions counts payment order status changes.
var PaymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "payments",
	Name:      "transitions_total",
	Help:      "Total payment order transitions by source type and new status.",
}, []string{"source", "status"})

// PaymentsPrepared counts newly created payment orders.
var PaymentsPrepared = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "payments",
	Name:      "prepared_total",
	Help:      "Total payment orders created by preparation.",
})

// QueueDepth tracks payment executions waiting for a worker.
var QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "paycheck",
	Subsystem: "payments",
	Name:      "queue_depth",
	Help:      "Payment executions waiting for a worker.",
})

// ProviderLatency tracks provider execution latency by provider.
var ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "paycheck",
	Subsystem: "payments",
	Name:      "provider_latency_seconds",
	Help:      "Payment provider execution latency in seconds.",
	Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
}, []string{"provider"})

// ─── Daemon ─────────────────────────────────────────────────────────────────

// SweepRuns counts autopilot sweep iterations by outcome (ok|error).
var SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycheck",
	Subsystem: "daemon",
	Name:      "sweeps_total",
	Help:      "Total autopilot sweep iterations by outcome.",
}, []string{"outcome"})

// StreamSubscribers tracks connected SSE clients.
var StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "paycheck",
	Subsystem: "daemon",
	Name:      "stream_subscribers",
	Help:      "Connected payment event stream subscribers.",
})
