package loop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "loop",
		Name:      "state",
		Help:      "1 for the currently active search-loop state, 0 otherwise.",
	}, []string{"state"})

	IterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "loop",
		Name:      "iterations_total",
		Help:      "Completed iterations by outcome kind.",
	}, []string{"outcome"})

	RotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "loop",
		Name:      "rotations_total",
		Help:      "Intermediate-asset rotations applied.",
	})
)
