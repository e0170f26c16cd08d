// Package sizer implements the Dynamic Sizer: probe-size generation,
// the per-probe two-leg quoting procedure, scoring and selection, and
// a historical-learning store of past selections per asset pair.
//
// Candidate/score shapes are grounded on internal/arbitrage/opportunity.go's
// constructor-computes-derived-fields style. The historical store is
// grounded on pkg/cache/ristretto.go, generalized from market metadata
// to per-pair PerformanceEntry records.
package sizer

import (
	"context"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/solward/triarb/internal/triarb"
	"github.com/solward/triarb/pkg/cache"
	"github.com/solward/triarb/pkg/logctx"
	"go.uber.org/zap"
)

// SizeStrategy selects the probe-size generation scheme.
type SizeStrategy string

const (
	StrategyStepped SizeStrategy = "stepped"
	StrategyOptimal SizeStrategy = "optimal"
)

// Config configures the Dynamic Sizer, mirroring spec §4.1's size/
// profit-floor option table.
type Config struct {
	SizeStrategy        SizeStrategy
	SizeTests            int
	PreferredPercentages []int
	MinSize              float64
	MaxSize              float64
	MinProfitPct         float64
	MinProfitUSD         float64
	MaxPriceImpactPct    float64
	MaxSlippageBps       int
	ProbeDelay           time.Duration
	LegSettleDelay       time.Duration
	Logger               *zap.Logger
}

const historicalTTL = 24 * time.Hour
const maxRecentSamples = 100

// Sizer is the Dynamic Sizer component.
type Sizer struct {
	cfg    Config
	quotes triarb.QuoteClient
	store  cache.Cache
	clock  triarb.Clock
	logger *zap.Logger
}

// New builds a Sizer.
func New(cfg Config, quotes triarb.QuoteClient, store cache.Cache, clock triarb.Clock) *Sizer {
	if clock == nil {
		clock = triarb.SystemClock{}
	}
	return &Sizer{cfg: cfg, quotes: quotes, store: store, clock: clock, logger: cfg.Logger}
}

// GenerateSizes produces the ascending, 4-decimal-rounded probe sizes
// for one iteration, per spec §4.6.
func (s *Sizer) GenerateSizes() []float64 {
	n := s.cfg.SizeTests
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{round4(s.cfg.MaxSize)}
	}

	var sizes []float64
	switch s.cfg.SizeStrategy {
	case StrategyOptimal:
		sizes = s.optimalSizes(n)
	default:
		sizes = s.steppedSizes(n)
	}

	out := make([]float64, 0, len(sizes))
	for _, v := range sizes {
		out = append(out, round4(v))
	}
	return dedupeSorted(out)
}

func (s *Sizer) steppedSizes(n int) []float64 {
	sizes := make([]float64, n)
	step := (s.cfg.MaxSize - s.cfg.MinSize) / float64(n-1)
	for i := 0; i < n; i++ {
		sizes[i] = s.cfg.MinSize + step*float64(i)
	}
	return sizes
}

func (s *Sizer) optimalSizes(n int) []float64 {
	set := map[float64]struct{}{s.cfg.MinSize: {}, s.cfg.MaxSize: {}}
	span := s.cfg.MaxSize - s.cfg.MinSize

	budget := n - 2
	if budget < 0 {
		budget = 0
	}
	for i, pct := range s.cfg.PreferredPercentages {
		if i >= budget {
			break
		}
		set[s.cfg.MinSize+span*float64(pct)/100] = struct{}{}
	}

	sizes := make([]float64, 0, len(set))
	for v := range set {
		sizes = append(sizes, v)
	}
	sort.Float64s(sizes)
	if len(sizes) > n {
		sizes = sizes[:n]
	}
	return sizes
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func dedupeSorted(sizes []float64) []float64 {
	sort.Float64s(sizes)
	out := sizes[:0]
	var last float64
	for i, v := range sizes {
		if i == 0 || v != last {
			out = append(out, v)
			last = v
		}
	}
	return out
}

// ProbeOne runs the two-leg quoting procedure for a single size and
// computes acceptance flags, per spec §4.6 step 4.
func (s *Sizer) ProbeOne(ctx context.Context, a, b triarb.Asset, size, anchorUSD float64) triarb.ProbeResult {
	result := triarb.ProbeResult{SizeNative: size, SizeRaw: a.ToRaw(size), Timestamp: s.clock.NowWall()}

	leg1, err := s.quotes.Quote(ctx, a, b, result.SizeRaw, s.cfg.MaxSlippageBps)
	if err != nil || !leg1.Valid() {
		result.FailureReason = "leg1_quote_failed"
		return result
	}
	result.Leg1 = leg1

	select {
	case <-ctx.Done():
		result.FailureReason = "cancelled"
		return result
	case <-time.After(200 * time.Millisecond):
	}

	leg2, err := s.quotes.Quote(ctx, b, a, leg1.OutAmount, s.cfg.MaxSlippageBps)
	if err != nil || !leg2.Valid() {
		result.FailureReason = "leg2_quote_failed"
		return result
	}
	result.Leg2 = leg2

	profitRaw := new(big.Int).Sub(leg2.OutAmount, result.SizeRaw)
	result.ProfitRaw = profitRaw

	profitNative := a.ToNative(profitRaw)
	result.ProfitUSD = profitNative * anchorUSD
	if result.SizeNative > 0 {
		result.ProfitPct = (profitNative / result.SizeNative) * 100
	}
	result.TotalValueUSD = size * anchorUSD
	result.TotalImpact = leg1.PriceImpactPct + leg2.PriceImpactPct

	result.MeetsPct = result.ProfitPct >= s.cfg.MinProfitPct
	result.MeetsUSD = result.ProfitUSD >= s.cfg.MinProfitUSD
	result.MeetsImpact = result.TotalImpact <= s.cfg.MaxPriceImpactPct
	result.Success = result.MeetsPct && result.MeetsUSD && result.MeetsImpact

	return result
}

// FindOptimal runs every probe for the pair in ascending size order,
// scores the eligible probes, and returns the winning Candidate, or
// nil if no probe was eligible.
func (s *Sizer) FindOptimal(ctx context.Context, a, b triarb.Asset, anchorUSD float64) (*triarb.Candidate, error) {
	sizes := s.GenerateSizes()
	results := make([]triarb.ProbeResult, 0, len(sizes))

	for i, size := range sizes {
		probe := s.ProbeOne(ctx, a, b, size, anchorUSD)
		ProbesRunTotal.Inc()
		if probe.Success {
			ProbesEligibleTotal.Inc()
		}
		results = append(results, probe)

		if i < len(sizes)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.ProbeDelay):
			}
		}
	}

	best := s.selectBest(results, anchorUSD)
	if best == nil {
		return nil, nil
	}

	pair := triarb.Pair{A: a, B: b}
	candidate := &triarb.Candidate{Pair: pair, Probe: best, Score: best.Score}
	BestScoreGauge.Set(best.Score)
	s.recordSelection(pair, *best)
	logctx.Performance(s.logger).Info("probe-scored",
		zap.Float64("size", best.SizeNative),
		zap.Float64("score", best.Score),
		zap.Float64("profit-usd", best.ProfitUSD))
	return candidate, nil
}

func (s *Sizer) selectBest(results []triarb.ProbeResult, anchorUSD float64) *triarb.ProbeResult {
	var best *triarb.ProbeResult
	for i := range results {
		r := &results[i]
		if !r.Success {
			continue
		}
		r.Score = s.score(*r, anchorUSD)
		if best == nil || betterThan(*r, *best) {
			best = r
		}
	}
	return best
}

func (s *Sizer) score(r triarb.ProbeResult, anchorUSD float64) float64 {
	impactTerm := 1 - r.TotalImpact/s.cfg.MaxPriceImpactPct
	if impactTerm < 0 {
		impactTerm = 0
	}
	return 0.4*(r.ProfitUSD/s.cfg.MinProfitUSD) +
		0.3*(r.ProfitPct/s.cfg.MinProfitPct) +
		0.2*(r.TotalValueUSD/(s.cfg.MaxSize*anchorUSD)) +
		0.1*impactTerm
}

func betterThan(candidate, current triarb.ProbeResult) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	if candidate.ProfitUSD != current.ProfitUSD {
		return candidate.ProfitUSD > current.ProfitUSD
	}
	return candidate.SizeNative > current.SizeNative
}
