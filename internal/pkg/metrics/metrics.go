package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts Stripe webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealfox",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mealfox",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// ReconcileTotal counts reconciled billing events by kind and outcome.
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealfox",
		Subsystem: "billing",
		Name:      "reconcile_total",
		Help:      "Reconciled billing events by kind and outcome (applied, noop, error).",
	}, []string{"kind", "outcome"})

	// GatewayCallsTotal counts Stripe API calls by operation and outcome.
	GatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealfox",
		Subsystem: "billing",
		Name:      "gateway_calls_total",
		Help:      "Stripe API calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// EntitlementDecisionsTotal counts gate decisions.
	EntitlementDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealfox",
		Subsystem: "entitlements",
		Name:      "decisions_total",
		Help:      "Entitlement decisions by result (allowed, denied, error).",
	}, []string{"result"})

	// EntitlementCacheTotal counts entitlement cache lookups.
	EntitlementCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealfox",
		Subsystem: "entitlements",
		Name:      "cache_lookups_total",
		Help:      "Entitlement cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)

// Outcome labels shared by the counters above.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeError   = "error"
	OutcomeSuccess = "success"
)
