package sizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesRunTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "sizer",
		Name:      "probes_run_total",
		Help:      "Two-leg probes executed across all pairs.",
	})

	ProbesEligibleTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "sizer",
		Name:      "probes_eligible_total",
		Help:      "Probes that passed all three acceptance flags.",
	})

	BestScoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "sizer",
		Name:      "best_score",
		Help:      "Score of the most recently selected candidate.",
	})

	HistoryPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "sizer",
		Name:      "history_pruned_total",
		Help:      "Historical entries pruned for having no sample newer than 24h.",
	})
)
