package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Batch solving metrics
	// ============================================
	BatchesSolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_batches_solved_total",
			Help: "Total number of batch-solve attempts by result",
		},
		[]string{"result"}, // solved, aborted, failed
	)

	SolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_solve_duration_seconds",
		Help:    "Duration of a full batch-solve attempt in seconds",
		Buckets: prometheus.DefBuckets,
	})

	MatchesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_matches_found_total",
			Help: "Total number of peer matches found by classification",
		},
		[]string{"match_type"}, // exact, partial
	)

	IntentsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_intents_resolved_total",
			Help: "Total number of intents resolved by execution path",
		},
		[]string{"path"}, // p2p, routed, unresolved
	)

	ResidualRoutingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solver_residual_routing_failures_total",
		Help: "Total number of residual routing calls that failed",
	})

	// ============================================
	// Registry submission metrics
	// ============================================
	SolutionsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_solutions_submitted_total",
			Help: "Total number of registry submissions by result",
		},
		[]string{"result"}, // accepted, rejected
	)

	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_submission_duration_seconds",
		Help:    "Duration of a registry submission in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ============================================
	// Storage batching metrics
	// ============================================
	BatchingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_storage_batching_decisions_total",
			Help: "Total number of storage batching decisions by recommendation",
		},
		[]string{"recommended"}, // true, false
	)

	BlobsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_blobs_stored_total",
			Help: "Total number of blobs stored by placement",
		},
		[]string{"placement"}, // standalone, bundled
	)

	// ============================================
	// Infrastructure metrics
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_nats_messages_received_total",
			Help: "Total number of NATS messages received",
		},
		[]string{"subject"},
	)

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_websocket_connections",
		Help: "Number of active WebSocket connections",
	})
)
