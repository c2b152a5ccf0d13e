// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginsStartedTotal counts OAuth login flows initiated via /login.
	LoginsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oauth_logins_started_total",
			Help: "Total OAuth login flows started",
		},
	)

	// LoginsCompletedTotal counts callback outcomes by result
	// (success, partial, failed).
	LoginsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oauth_logins_completed_total",
			Help: "Total OAuth callback outcomes by result",
		},
		[]string{"result"},
	)

	// SubscriptionAttemptsTotal counts event subscription registrations
	// by upstream HTTP status class.
	SubscriptionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_subscription_attempts_total",
			Help: "Total event subscription attempts by status class",
		},
		[]string{"status"},
	)

	// WebhookEventsTotal counts inbound webhook payloads by classified kind.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total inbound webhook events by kind",
		},
		[]string{"kind"},
	)
)
