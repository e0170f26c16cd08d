// Package oracle maintains a fresh USD quote for the anchor asset,
// sampled from N redundant external sources. Grounded on the
// fan-out-then-collect pattern used by yetaxyz-oracle's crypto price
// aggregator (per-source goroutine writing to a buffered channel,
// closed by a sync.WaitGroup-driven goroutine), simplified per spec
// from an IQR/volume-weighted-median blend to a plain arithmetic mean
// of successes.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

// Source is one external price feed. It returns a positive, finite
// price or an error; sources requiring credentials that are absent
// should return a sentinel error so the fetcher can skip them
// silently.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (float64, error)
}

// Config configures the oracle.
type Config struct {
	Sources         []Source
	RefreshInterval time.Duration
	PriceBandMin    float64
	PriceBandMax    float64
	Clock           triarb.Clock
	Logger          *zap.Logger
}

// Oracle is the Price Oracle component.
type Oracle struct {
	sources      []Source
	refreshEvery time.Duration
	bandMin      float64
	bandMax      float64
	clock        triarb.Clock
	logger       *zap.Logger

	mu          sync.RWMutex
	currentUSD  float64
	lastUpdate  time.Time
	samples     []triarb.PriceSample

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const maxSamples = 100

// New builds an Oracle. At least 2 sources are expected per spec, but
// New does not enforce it — ForceRefresh degrades gracefully with fewer.
func New(cfg Config) *Oracle {
	if cfg.PriceBandMin == 0 && cfg.PriceBandMax == 0 {
		cfg.PriceBandMin, cfg.PriceBandMax = 1, 10000
	}
	if cfg.Clock == nil {
		cfg.Clock = triarb.SystemClock{}
	}
	return &Oracle{
		sources:      cfg.Sources,
		refreshEvery: cfg.RefreshInterval,
		bandMin:      cfg.PriceBandMin,
		bandMax:      cfg.PriceBandMax,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
	}
}

// Start launches the background refresh task. It performs one
// synchronous refresh before returning so Current() is populated.
func (o *Oracle) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)

	if err := o.ForceRefresh(o.ctx); err != nil {
		o.logger.Warn("oracle-initial-refresh-failed", zap.Error(err))
	}

	o.wg.Add(1)
	go o.refreshLoop()
	return nil
}

// Stop cancels the background refresh task and waits for it to exit.
func (o *Oracle) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

func (o *Oracle) refreshLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(o.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			if err := o.ForceRefresh(o.ctx); err != nil {
				o.logger.Warn("oracle-refresh-failed", zap.Error(err))
			}
		}
	}
}

// ForceRefresh polls every configured source in parallel and updates
// the current price from the arithmetic mean of the successes. An
// update succeeds iff at least one source returned.
func (o *Oracle) ForceRefresh(ctx context.Context) error {
	type result struct {
		source string
		price  float64
		err    error
	}

	resultsChan := make(chan result, len(o.sources))
	var wg sync.WaitGroup

	for _, src := range o.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			price, err := s.Fetch(ctx)
			resultsChan <- result{source: s.Name(), price: price, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var sum float64
	var contributing []string
	for r := range resultsChan {
		if errors.Is(r.err, ErrCredentialMissing) {
			continue
		}
		if r.err != nil {
			o.logger.Warn("oracle-source-failed", zap.String("source", r.source), zap.Error(r.err))
			SourceFailureTotal.WithLabelValues(r.source).Inc()
			continue
		}
		if r.price <= 0 {
			continue
		}
		sum += r.price
		contributing = append(contributing, r.source)
		SourceSuccessTotal.WithLabelValues(r.source).Inc()
	}

	if len(contributing) == 0 {
		return fmt.Errorf("oracle: no source succeeded")
	}

	mean := roundTo2(sum / float64(len(contributing)))

	o.mu.Lock()
	defer o.mu.Unlock()

	if mean < o.bandMin || mean > o.bandMax {
		o.logger.Warn("oracle-price-outside-plausibility-band",
			zap.Float64("price", mean), zap.Float64("min", o.bandMin), zap.Float64("max", o.bandMax))
		RefreshRejectedTotal.Inc()
		return nil
	}

	now := o.clock.NowWall()
	o.currentUSD = mean
	CurrentPriceUSD.Set(mean)
	o.lastUpdate = now
	o.samples = append(o.samples, triarb.PriceSample{
		Timestamp:           now,
		PriceUSD:            mean,
		ContributingSources: contributing,
	})
	if len(o.samples) > maxSamples {
		o.samples = o.samples[len(o.samples)-maxSamples:]
	}
	return nil
}

// Current returns the last accepted price and whether it is fresh
// (observed within 2x the refresh interval).
func (o *Oracle) Current() (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastUpdate.IsZero() {
		return 0, false
	}
	fresh := o.clock.NowWall().Sub(o.lastUpdate) < 2*o.refreshEvery
	return o.currentUSD, fresh
}

// Volatility returns the coefficient of variation (stddev/mean) of
// the last 10 samples.
func (o *Oracle) Volatility() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	n := len(o.samples)
	if n == 0 {
		return 0
	}
	start := 0
	if n > 10 {
		start = n - 10
	}
	window := o.samples[start:]

	var sum float64
	for _, s := range window {
		sum += s.PriceUSD
	}
	mean := sum / float64(len(window))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, s := range window {
		d := s.PriceUSD - mean
		variance += d * d
	}
	variance /= float64(len(window))

	return math.Sqrt(variance) / mean
}

// Trend classifies the recent direction of the price using the
// first-vs-last change of the recent window, crossing ±2%.
func (o *Oracle) Trend() triarb.TrendLabel {
	o.mu.RLock()
	defer o.mu.RUnlock()

	n := len(o.samples)
	if n < 2 {
		return triarb.TrendStable
	}
	start := 0
	if n > 10 {
		start = n - 10
	}
	window := o.samples[start:]

	first := window[0].PriceUSD
	last := window[len(window)-1].PriceUSD
	if first == 0 {
		return triarb.TrendStable
	}
	change := (last - first) / first

	switch {
	case change >= 0.02:
		return triarb.TrendRising
	case change <= -0.02:
		return triarb.TrendFalling
	default:
		return triarb.TrendStable
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
