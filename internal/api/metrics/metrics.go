// Package metrics defines and registers all custom Prometheus metrics for the
// hub-auth service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hub_auth"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginsTotal counts completed logins.
// Label:
//   - role: the role derived for the user ("guest", "contributor", "admin")
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of completed Discord logins, by derived role.",
	},
	[]string{"role"},
)

// LoginFailuresTotal counts logins aborted before a session was persisted.
// Label:
//   - stage: "code_reused", "exchange", "profile", "persist", "token"
var LoginFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_failures_total",
		Help:      "Total number of logins that failed, by the stage that failed.",
	},
	[]string{"stage"},
)

// MembershipChecksTotal counts guild membership lookups.
// Label:
//   - result: "member", "not_member" or "check_failed"
var MembershipChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_checks_total",
		Help:      "Total number of guild membership checks, by outcome.",
	},
	[]string{"result"},
)

// ── Provider metrics ──────────────────────────────────────────────────────────

// ProviderRequestDuration measures calls to the Discord API.
// Labels:
//   - endpoint: "token", "user", "member"
//   - outcome: "ok", "http_error", "transport_error"
var ProviderRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of requests to the Discord API.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"endpoint", "outcome"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// LiveSessions tracks the number of hydrated session stores held in memory.
var LiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sessions",
		Help:      "Number of session stores currently held in memory.",
	},
)

// AuditQueueDepth tracks login events waiting in each audit worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of login events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditErrorsTotal counts login events that could not be persisted.
var AuditErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "Total number of login audit records that failed to persist.",
	},
)
