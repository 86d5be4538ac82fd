package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_turns_total",
			Help: "Turns processed, by detected intent",
		},
		[]string{"intent"},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_state_transitions_total",
			Help: "Conversation state transitions",
		},
		[]string{"from", "to"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_escalations_total",
			Help: "Escalation decisions, by outcome (escalated, info_requested)",
		},
		[]string{"outcome"},
	)

	TurnFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_turn_failures_total",
			Help: "Turns that fell back to the degraded reply",
		},
	)

	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_generation_latency_seconds",
			Help:    "Generator call latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"model"},
	)

	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_generation_tokens_total",
			Help: "Tokens reported by the generator",
		},
		[]string{"model"},
	)

	// Sessions that expire through the store TTL are never counted as
	// deleted.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_sessions_created_total",
			Help: "Sessions created through the API",
		},
	)

	SessionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_sessions_deleted_total",
			Help: "Sessions explicitly deleted through the API",
		},
	)
)
