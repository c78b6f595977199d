// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storyforge"

var (
	// HTTPRequests counts handled requests.
	// Labels: method, route (template, not raw path), status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks handler latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CreditsMoved sums credits moved through the ledger.
	// Labels: kind (earn, spend), source
	CreditsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Total credits moved through the ledger",
		},
		[]string{"kind", "source"},
	)

	// InsufficientCredits counts rejected spends.
	InsufficientCredits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "insufficient_credits_total",
			Help:      "Spends rejected for insufficient balance",
		},
	)

	DailyClaims = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "daily_claims_total",
			Help:      "Daily login rewards claimed",
		},
	)

	// QuestEvents counts quest state transitions.
	// Labels: event (completed, claimed)
	QuestEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quests",
			Name:      "events_total",
			Help:      "Quest state transitions",
		},
		[]string{"event"},
	)

	// BadgesAwarded counts badge grants by badge id.
	BadgesAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "badges",
			Name:      "awarded_total",
			Help:      "Badges awarded",
		},
		[]string{"badge"},
	)

	// Generations counts AI generation attempts.
	// Labels: kind, mode (text, image), result (success, error)
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "AI generation requests",
		},
		[]string{"kind", "mode", "result"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of AI generation round trips",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"mode"},
	)
)
