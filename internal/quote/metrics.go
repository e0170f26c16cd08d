package quote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerStateGauge mirrors the breaker's state (0=closed, 1=open, 2=half-open).
	BreakerStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "quote",
		Name:      "circuit_breaker_state",
		Help:      "Quote client circuit breaker state: 0=closed, 1=open, 2=half-open.",
	})

	// BreakerTripTotal counts breaker trips (closed/half-open -> open).
	BreakerTripTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "quote",
		Name:      "circuit_breaker_trips_total",
		Help:      "Number of times the circuit breaker has opened.",
	})

	// CallDuration observes the latency of every quote API attempt,
	// successful or not.
	CallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "quote",
		Name:      "call_duration_seconds",
		Help:      "Latency of quote API calls.",
		Buckets:   prometheus.DefBuckets,
	})

	// ErrorKindTotal counts quote failures by classified error kind.
	ErrorKindTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "quote",
		Name:      "error_kind_total",
		Help:      "Quote failures by classified error kind.",
	}, []string{"kind"})

	// RateLimitWaitSeconds observes how long a call waited on the rate limiter.
	RateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "quote",
		Name:      "rate_limit_wait_seconds",
		Help:      "Time a quote call waited on the rate limiter before dispatch.",
		Buckets:   prometheus.DefBuckets,
	})
)
