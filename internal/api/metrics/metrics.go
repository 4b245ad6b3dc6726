// Package metrics defines and registers all custom Prometheus metrics for the
// admin identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry at package load; the
// router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "admin_identity"

// ── Account metrics ───────────────────────────────────────────────────────────

// AccountsRegisteredTotal counts successfully created accounts.
// Label:
//   - role: the role assigned at registration (e.g. "AdminEmployee")
var AccountsRegisteredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_registered_total",
		Help:      "Total number of accounts created, by assigned role.",
	},
	[]string{"role"},
)

// OTPConsumedTotal counts OTP consumption attempts.
// Label:
//   - result: "success" or "invalid"
var OTPConsumedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_consumed_total",
		Help:      "Total number of OTP consumption attempts, by result.",
	},
	[]string{"result"},
)

// ── Mail queue metrics ────────────────────────────────────────────────────────

// MailJobsEnqueuedTotal counts jobs durably written to the mail queue.
// Label:
//   - kind: the job kind (e.g. "send-registered-user-email")
var MailJobsEnqueuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_jobs_enqueued_total",
		Help:      "Total number of mail jobs enqueued, by kind.",
	},
	[]string{"kind"},
)

// MailEnqueueFailuresTotal counts enqueue attempts that failed or timed out.
// These are non-fatal to the triggering operation but indicate queue trouble.
var MailEnqueueFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_enqueue_failures_total",
		Help:      "Total number of failed mail enqueue attempts, by kind.",
	},
	[]string{"kind"},
)

// MailJobsDeliveredTotal counts worker-side delivery outcomes.
// Labels:
//   - kind:   the job kind
//   - result: "ok" or "error" (errored jobs stay pending and are redelivered)
var MailJobsDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_jobs_delivered_total",
		Help:      "Total number of mail delivery attempts by the worker, by kind and result.",
	},
	[]string{"kind", "result"},
)
