// Package telemetry holds the logger setup and the Prometheus collectors.
//
// Collectors register against the default registry and are served on
// GET /metrics. HTTP metrics are labelled by the Echo route template
// (c.Path()), never the raw URL, to keep label cardinality bounded.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Login metrics. result is one of success, failure, blocked, denied.
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login form submissions by pipeline and outcome.",
	},
	[]string{"pipeline", "result"},
)

var LoginAttemptsPurgedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "login_attempts_purged_total",
		Help: "Login attempt rows removed by the retention sweep.",
	},
)

// Audit trail metrics.
var (
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Admin audit entries written, by action type.",
		},
		[]string{"action_type"},
	)

	AuditWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit entries that could not be persisted.",
		},
	)

	AuditExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_exports_total",
			Help: "Daily audit export runs by result.",
		},
		[]string{"result"},
	)
)

var SchedulerTaskRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_task_runs_total",
		Help: "Background task executions by task name and result.",
	},
	[]string{"task", "result"},
)
