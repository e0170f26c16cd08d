package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CurrentPriceUSD is the last accepted anchor USD price.
	CurrentPriceUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "triarb",
		Subsystem: "oracle",
		Name:      "current_price_usd",
		Help:      "Last accepted anchor asset USD price.",
	})

	// SourceSuccessTotal counts successful fetches per source.
	SourceSuccessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "oracle",
		Name:      "source_success_total",
		Help:      "Successful price fetches per source.",
	}, []string{"source"})

	// SourceFailureTotal counts failed fetches per source.
	SourceFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "oracle",
		Name:      "source_failure_total",
		Help:      "Failed price fetches per source.",
	}, []string{"source"})

	// RefreshRejectedTotal counts refreshes rejected by the plausibility band.
	RefreshRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triarb",
		Subsystem: "oracle",
		Name:      "refresh_rejected_total",
		Help:      "Refreshes rejected for falling outside the plausibility band.",
	})
)
