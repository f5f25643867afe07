package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpqueue_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Business metrics
	TicketsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helpqueue_tickets_created_total",
			Help: "Total tickets created",
		},
	)

	ClaimAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpqueue_claim_attempts_total",
			Help: "Total claim attempts by outcome",
		},
		[]string{"outcome"}, // "won", "conflict", "not_found"
	)

	TicketsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helpqueue_tickets_resolved_total",
			Help: "Total tickets resolved",
		},
	)

	// Fanout metrics
	ConnectedObservers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "helpqueue_connected_observers",
			Help: "Currently connected WebSocket observers",
		},
	)

	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpqueue_events_broadcast_total",
			Help: "Total events handed to the fanout",
		},
		[]string{"type"},
	)

	DroppedObservers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helpqueue_dropped_observers_total",
			Help: "Observers disconnected because their send buffer filled",
		},
	)
)

// ClaimOutcome label values.
const (
	OutcomeWon      = "won"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
)
