package metrics

import "github.com/prometheus/client_golang/prometheus"

// Governor, session and backend Prometheus metrics.
var (
	GovernorDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "governor_decisions_total",
			Help:      "Access decisions per tier",
		},
		[]string{"tier", "outcome"}, // "allowed" / "downgraded"
	)

	GovernorBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "governor_blocks_total",
			Help:      "Blocked requests by reason",
		},
		[]string{"reason"},
	)

	GovernorTrackedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "searchgate",
			Name:      "governor_tracked_clients",
			Help:      "Clients with a live rate tracker",
		},
	)

	SessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "session_events_total",
			Help:      "Search session lifecycle events",
		},
		[]string{"event"}, // created, reused, evicted, expired, cleared, failed
	)

	SessionResortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "session_resorts_total",
			Help:      "Resort attempts by outcome",
		},
		[]string{"outcome"}, // "applied" / "refused"
	)

	SessionBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchgate",
			Name:      "session_build_duration_seconds",
			Help:      "Time spent in RetrieveAndRank per session",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"}, // "ok" / "error" / "inconsistent"
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "searchgate",
			Name:      "sessions_active",
			Help:      "Search sessions held in the cache",
		},
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "backend_requests_total",
			Help:      "Requests sent to the index backend",
		},
		[]string{"status"},
	)

	MemoryPressureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "searchgate",
			Name:      "memory_pressure_total",
			Help:      "Times the heap watchdog cleared in-memory caches",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers governor, session and backend metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(GovernorDecisionsTotal)
	prometheus.MustRegister(GovernorBlocksTotal)
	prometheus.MustRegister(GovernorTrackedClients)
	prometheus.MustRegister(SessionEventsTotal)
	prometheus.MustRegister(SessionResortsTotal)
	prometheus.MustRegister(SessionBuildDuration)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(MemoryPressureTotal)
	searchMetricsRegistered = true
}
