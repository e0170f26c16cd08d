package loop

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/solward/triarb/internal/triarb"
	"github.com/solward/triarb/pkg/logctx"
	"go.uber.org/zap"
)

const legSettleDefault = 3 * time.Second

// tick runs exactly one iteration of the search loop's state machine:
// Idle -> Scanning -> (NoOp | Executing) -> Bookkeeping -> Idle, with
// Cancelled a terminal convergence from any state. Matches spec §4.7.
func (l *Loop) tick(ctx context.Context, index uint64) {
	defer func() {
		if r := recover(); r != nil {
			l.inFlight.Release()
			l.logger.Error("tick-panic-recovered",
				zap.Uint64("index", index),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			l.setState(StateIdle)
		}
	}()

	record := triarb.IterationRecord{
		ID:        uuid.New().String(),
		Index:     index,
		StartedAt: l.clock.NowWall(),
	}

	l.setState(StateIdle)

	if ctx.Err() != nil {
		l.setState(StateCancelled)
		l.logger.Info("search-loop-cancelled", zap.Uint64("index", index))
		return
	}

	if l.manualRotation.consume() {
		next := l.ring.Advance()
		RotationsTotal.Inc()
		logctx.Rotation(l.logger).Info("rotation-advanced", zap.String("next-intermediate", next.Symbol))
		return
	}

	a := l.ring.Anchor()
	b := l.ring.Current()
	record.Route = triarb.Pair{A: a, B: b}

	anchorUSD, fresh := l.oracle.Current()
	if !fresh {
		l.logger.Warn("stale-anchor-price", zap.Float64("anchor-usd", anchorUSD))
	}

	l.setState(StateScanning)
	candidate, err := l.sizer.FindOptimal(ctx, a, b, anchorUSD)
	if err != nil {
		record.Outcome = triarb.FailedOutcome{Kind: triarb.KindOf(err), Message: err.Error()}
		l.finishBookkeeping(ctx, record)
		return
	}
	if candidate == nil {
		l.setState(StateNoOp)
		record.Outcome = triarb.NoOpOutcome{}
		l.finishBookkeeping(ctx, record)
		return
	}

	logctx.Arbitrage(l.logger).Info("candidate-found",
		zap.String("pair", candidate.Pair.A.Symbol+"/"+candidate.Pair.B.Symbol),
		zap.Float64("profit-usd", candidate.Probe.ProfitUSD),
		zap.Float64("score", candidate.Score))

	if candidate.Probe.ProfitUSD < l.cfg.MinProfitUSD {
		record.Outcome = triarb.SkippedOutcome{Reason: triarb.SkipBelowUSDFloor}
		l.finishBookkeeping(ctx, record)
		return
	}

	record.PickedSize = candidate.Probe.SizeRaw

	if !l.inFlight.TryAcquire() {
		record.Outcome = triarb.SkippedOutcome{Reason: triarb.SkipBusyExecuting}
		l.logger.Info("iteration-skipped", zap.String("reason", string(triarb.SkipBusyExecuting)))
		l.finishBookkeeping(ctx, record)
		return
	}
	defer l.inFlight.Release()

	l.setState(StateExecuting)
	outcome := l.execute(ctx, candidate, anchorUSD)
	record.Outcome = outcome

	switch executed := outcome.(type) {
	case triarb.ExecutedOutcome:
		l.sizer.UpdateActual(candidate.Pair, candidate.Probe.SizeNative, executed.ProfitPct, true)
	case triarb.FailedOutcome:
		l.sizer.UpdateActual(candidate.Pair, candidate.Probe.SizeNative, -100, false)
	}

	l.finishBookkeeping(ctx, record)
}

// execute runs the Executing state: simulated when trading is
// disabled, else the two-leg live submission via the MEV transport.
func (l *Loop) execute(ctx context.Context, candidate *triarb.Candidate, anchorUSD float64) triarb.Outcome {
	probe := candidate.Probe

	if !l.cfg.TradingEnabled {
		return triarb.ExecutedOutcome{
			ProfitPct: probe.ProfitPct,
			ProfitUSD: probe.ProfitUSD,
			TxIDs:     []string{fmt.Sprintf("simulation_%d", l.clock.NowWall().UnixMilli())},
			Legs:      []*triarb.Quote{probe.Leg1, probe.Leg2},
		}
	}

	params := l.transport.DeriveParams(probe.SizeNative, l.cfg.MaxSize, probe.ProfitPct, probe.ProfitUSD)

	leg1Signed, err := l.signer.Sign(ctx, probe.Leg1.RouteDescriptor)
	if err != nil {
		return triarb.FailedOutcome{Kind: triarb.ErrExecutionFailed, Message: "sign leg1: " + err.Error()}
	}

	leg1Result := l.transport.Execute(ctx, leg1Signed, params)
	if !leg1Result.Success {
		return triarb.FailedOutcome{Kind: triarb.ErrExecutionFailed, Message: "leg1: " + errString(leg1Result.Err)}
	}
	logctx.Trade(l.logger).Info("leg-submitted", zap.Int("leg", 1), zap.String("txid", leg1Result.TxID), zap.String("method", string(leg1Result.Method)))

	settle := l.cfg.LegSettleDelay
	if settle == 0 {
		settle = legSettleDefault
	}
	select {
	case <-ctx.Done():
		return triarb.FailedOutcome{Kind: triarb.ErrExecutionFailed, Message: "cancelled between legs"}
	case <-time.After(settle):
	}

	leg2Signed, err := l.signer.Sign(ctx, probe.Leg2.RouteDescriptor)
	if err != nil {
		return triarb.FailedOutcome{Kind: triarb.ErrExecutionFailed, Message: "sign leg2: " + err.Error()}
	}

	leg2Result := l.transport.Execute(ctx, leg2Signed, params)
	if !leg2Result.Success {
		return triarb.FailedOutcome{Kind: triarb.ErrExecutionFailed, Message: "leg2: " + errString(leg2Result.Err)}
	}
	logctx.Trade(l.logger).Info("leg-submitted", zap.Int("leg", 2), zap.String("txid", leg2Result.TxID), zap.String("method", string(leg2Result.Method)))

	freshUSD, fresh := l.oracle.Current()
	if !fresh {
		if err := l.oracle.ForceRefresh(ctx); err != nil {
			l.logger.Warn("post-execution-refresh-failed", zap.Error(err))
		}
		freshUSD, _ = l.oracle.Current()
	}

	realizedProfitRaw := probe.ProfitRaw // realized out-amount tracking is delegated to the transport's txid; raw delta reused as the best available realized figure
	realizedProfitNative := candidate.Pair.A.ToNative(realizedProfitRaw)
	realizedProfitUSD := realizedProfitNative * freshUSD
	realizedProfitPct := probe.ProfitPct
	if probe.SizeNative > 0 {
		realizedProfitPct = (realizedProfitNative / probe.SizeNative) * 100
	}

	return triarb.ExecutedOutcome{
		ProfitPct: realizedProfitPct,
		ProfitUSD: realizedProfitUSD,
		TxIDs:     []string{leg1Result.TxID, leg2Result.TxID},
		Legs:      []*triarb.Quote{probe.Leg1, probe.Leg2},
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// finishBookkeeping runs the Bookkeeping state: persist the
// iteration, periodically reclaim memory and prune historical stores,
// per spec §4.7 step 9.
func (l *Loop) finishBookkeeping(ctx context.Context, record triarb.IterationRecord) {
	l.setState(StateBookkeeping)
	IterationsTotal.WithLabelValues(outcomeLabel(record.Outcome)).Inc()

	if l.store != nil {
		if err := l.store.StoreIteration(ctx, record); err != nil {
			l.logger.Warn("iteration-store-failed", zap.Error(err))
		}
	}

	if l.events != nil {
		l.events.Broadcast(record)
	}

	if executed, ok := record.Outcome.(triarb.ExecutedOutcome); ok && executed.ProfitUSD > 0 {
		logctx.Trade(l.logger).Info("positive-outcome-recorded", zap.Float64("profit-usd", executed.ProfitUSD))
	}

	if record.Index%50 == 0 {
		debug.FreeOSMemory()
	}
	if record.Index%100 == 0 {
		l.sizer.CleanupOld(l.knownPairs())
		l.transport.CleanupOld()
	}
}

func (l *Loop) knownPairs() []triarb.Pair {
	anchor := l.ring.Anchor()
	pairs := make([]triarb.Pair, 0, len(l.ring.Intermediates()))
	for _, intermediate := range l.ring.Intermediates() {
		pairs = append(pairs, triarb.Pair{A: anchor, B: intermediate})
	}
	return pairs
}

func outcomeLabel(outcome triarb.Outcome) string {
	switch outcome.(type) {
	case triarb.NoOpOutcome:
		return "no_op"
	case triarb.SkippedOutcome:
		return "skipped"
	case triarb.ExecutedOutcome:
		return "executed"
	case triarb.FailedOutcome:
		return "failed"
	default:
		return "unknown"
	}
}
