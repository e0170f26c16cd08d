package sizer

import (
	json "github.com/goccy/go-json"
	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

func cacheKey(pair triarb.Pair) string {
	return "sizer:" + pair.Key()
}

func (s *Sizer) loadEntry(pair triarb.Pair) triarb.PerformanceEntry {
	raw, ok := s.store.Get(cacheKey(pair))
	if !ok {
		return triarb.PerformanceEntry{}
	}
	blob, ok := raw.([]byte)
	if !ok {
		return triarb.PerformanceEntry{}
	}
	var entry triarb.PerformanceEntry
	if err := json.Unmarshal(blob, &entry); err != nil {
		s.logger.Warn("sizer-history-decode-failed", zap.String("pair", pair.Key()), zap.Error(err))
		return triarb.PerformanceEntry{}
	}
	return entry
}

func (s *Sizer) saveEntry(pair triarb.Pair, entry triarb.PerformanceEntry) {
	entry.UpdatedAt = s.clock.NowWall()
	blob, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("sizer-history-encode-failed", zap.String("pair", pair.Key()), zap.Error(err))
		return
	}
	s.store.Set(cacheKey(pair), blob, historicalTTL)
}

// recordSelection appends the winning probe to the pair's historical
// entry, updating best_size/best_profit_pct on strict improvement and
// capping recent_samples at 100 with FIFO eviction, per spec §4.6.
func (s *Sizer) recordSelection(pair triarb.Pair, selected triarb.ProbeResult) {
	entry := s.loadEntry(pair)

	if entry.BestSizeRaw == nil || selected.ProfitPct > entry.BestProfitPct {
		entry.BestSizeRaw = selected.SizeRaw
		entry.BestProfitPct = selected.ProfitPct
	}

	entry.RecentSamples = appendCapped(entry.RecentSamples, selected)
	s.saveEntry(pair, entry)
}

// UpdateActual is invoked by the outer loop after execution settles;
// it feeds the learning store without altering best_size directly.
func (s *Sizer) UpdateActual(pair triarb.Pair, size float64, realizedProfitPct float64, success bool) {
	entry := s.loadEntry(pair)
	entry.TotalTrades++
	if success {
		entry.SuccessfulTrades++
	}

	sample := triarb.ProbeResult{
		SizeNative: size,
		ProfitPct:  realizedProfitPct,
		Success:    success,
		Timestamp:  s.clock.NowWall(),
	}
	entry.RecentSamples = appendCapped(entry.RecentSamples, sample)
	s.saveEntry(pair, entry)
}

func appendCapped(samples []triarb.ProbeResult, next triarb.ProbeResult) []triarb.ProbeResult {
	samples = append(samples, next)
	if len(samples) > maxRecentSamples {
		samples = samples[len(samples)-maxRecentSamples:]
	}
	return samples
}

// CleanupOld prunes cached entries whose newest sample is older than
// 24h. The cache's own TTL already expires most stale entries; this
// sweeps ones that were refreshed (extending their TTL) but whose
// samples themselves aged out.
func (s *Sizer) CleanupOld(pairs []triarb.Pair) {
	cutoff := s.clock.NowWall().Add(-historicalTTL)
	for _, pair := range pairs {
		entry := s.loadEntry(pair)
		if len(entry.RecentSamples) == 0 {
			continue
		}
		newest := entry.RecentSamples[len(entry.RecentSamples)-1].Timestamp
		if newest.Before(cutoff) {
			s.store.Delete(cacheKey(pair))
			HistoryPrunedTotal.Inc()
		}
	}
}
