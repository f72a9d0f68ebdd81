package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TransportAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_transport_attempts_total",
			Help: "Total number of HTTP attempts against the exchange endpoint (count)",
		},
		[]string{"event_kind", "outcome"},
	)

	TransportRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exchange_transport_request_duration_ms",
			Help:    "Duration of a single exchange attempt in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"event_kind"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Submission state transitions by kind and resulting status (count)",
		},
		[]string{"kind", "status"},
	)

	GuardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_rejections_total",
			Help: "Submissions rejected by a local guard before any transport attempt (count)",
		},
		[]string{"kind", "reason"},
	)

	PollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Poll cycles by result (count)",
		},
		[]string{"result"},
	)

	PollResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_results_total",
			Help: "Resources correlated from poll responses by bucket (count)",
		},
		[]string{"bucket"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_cycle_duration_ms",
			Help:    "Full poll cycle duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)

	BatchAggregatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_aggregates_total",
			Help: "Batch aggregate status recomputations by resulting status (count)",
		},
		[]string{"status"},
	)

	EligibilityCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_cache_total",
			Help: "Eligibility cache lookups by result (count)",
		},
		[]string{"result"},
	)

	LifecycleEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_events_total",
			Help: "Lifecycle events published to the broker by status (count)",
		},
		[]string{"event_type", "status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Requests seen by the rate limiter by decision (count)",
		},
		[]string{"decision"},
	)
)

func RegisterEngineMetrics() {
	prometheus.MustRegister(TransportAttemptsTotal)
	prometheus.MustRegister(TransportRequestDuration)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(GuardRejectionsTotal)
	prometheus.MustRegister(PollCyclesTotal)
	prometheus.MustRegister(PollResultsTotal)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(BatchAggregatesTotal)
	prometheus.MustRegister(EligibilityCacheTotal)
	prometheus.MustRegister(LifecycleEventsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveTransportAttempt(eventKind, outcome string, duration time.Duration) {
	TransportAttemptsTotal.WithLabelValues(eventKind, outcome).Inc()
	TransportRequestDuration.WithLabelValues(eventKind).Observe(float64(duration.Milliseconds()))
}

func ObservePollCycle(result string, duration time.Duration) {
	PollCyclesTotal.WithLabelValues(result).Inc()
	PollDuration.Observe(float64(duration.Milliseconds()))
}
