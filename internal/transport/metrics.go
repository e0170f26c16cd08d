package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmitMethodTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "transport",
		Name:      "submit_method_total",
		Help:      "Executions submitted per transport method.",
	}, []string{"method"})

	SubmitJitterSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triarb",
		Subsystem: "transport",
		Name:      "submit_jitter_seconds",
		Help:      "Applied send-delay jitter before submission.",
		Buckets:   prometheus.LinearBuckets(0, 0.05, 10),
	})

	ExecutionFailureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "transport",
		Name:      "execution_failure_total",
		Help:      "Executions that exhausted every submission path.",
	})
)
