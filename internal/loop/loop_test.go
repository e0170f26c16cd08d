package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solward/triarb/internal/ring"
	"github.com/solward/triarb/internal/triarb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRing(t *testing.T, intermediates ...triarb.Asset) *ring.Ring {
	t.Helper()
	a := triarb.Asset{Address: "A", Symbol: "USDC", Decimals: 6}
	if len(intermediates) == 0 {
		intermediates = []triarb.Asset{{Address: "B", Symbol: "SOL", Decimals: 9}}
	}
	r, err := ring.New(a, intermediates, "0xWallet", nil)
	require.NoError(t, err)
	return r
}

type fakeOracle struct {
	price        float64
	fresh        bool
	refreshCalls int32
}

func (o *fakeOracle) Current() (float64, bool) { return o.price, o.fresh }
func (o *fakeOracle) ForceRefresh(ctx context.Context) error {
	atomic.AddInt32(&o.refreshCalls, 1)
	o.fresh = true
	return nil
}
func (o *fakeOracle) Volatility() float64        { return 0 }
func (o *fakeOracle) Trend() triarb.TrendLabel { return triarb.TrendStable }

type fakeSizer struct {
	candidate *triarb.Candidate
	err       error

	mu            sync.Mutex
	actualUpdates []float64 // realizedProfitPct values observed
}

func (s *fakeSizer) FindOptimal(ctx context.Context, a, b triarb.Asset, anchorUSD float64) (*triarb.Candidate, error) {
	return s.candidate, s.err
}
func (s *fakeSizer) UpdateActual(pair triarb.Pair, size float64, realizedProfitPct float64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actualUpdates = append(s.actualUpdates, realizedProfitPct)
}
func (s *fakeSizer) CleanupOld(pairs []triarb.Pair) {}

type panickySizer struct{}

func (panickySizer) FindOptimal(ctx context.Context, a, b triarb.Asset, anchorUSD float64) (*triarb.Candidate, error) {
	panic("boom")
}
func (panickySizer) UpdateActual(pair triarb.Pair, size float64, realizedProfitPct float64, success bool) {
}
func (panickySizer) CleanupOld(pairs []triarb.Pair) {}

type fakeTransport struct {
	leg1Success bool
	leg2Success bool
	calls       int32
}

func (t *fakeTransport) Execute(ctx context.Context, signedTx []byte, params triarb.ProtectionParams) triarb.ExecutionResult {
	n := atomic.AddInt32(&t.calls, 1)
	if n == 1 {
		return triarb.ExecutionResult{Success: t.leg1Success, TxID: "leg1-tx"}
	}
	return triarb.ExecutionResult{Success: t.leg2Success, TxID: "leg2-tx"}
}
func (t *fakeTransport) DeriveParams(size, maxSize, expectedProfitPct, expectedProfitUSD float64) triarb.ProtectionParams {
	return triarb.ProtectionParams{}
}
func (t *fakeTransport) CleanupOld() {}

type fakeSigner struct{}

func (fakeSigner) PublicKey() []byte { return []byte("pub") }
func (fakeSigner) Sign(ctx context.Context, rawTx []byte) ([]byte, error) {
	return append([]byte("signed:"), rawTx...), nil
}

type fakeStore struct {
	mu      sync.Mutex
	records []triarb.IterationRecord
}

func (s *fakeStore) StoreIteration(ctx context.Context, record triarb.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func probeCandidate(sizeNative, profitPct, profitUSD float64) *triarb.Candidate {
	a := triarb.Asset{Address: "A", Symbol: "USDC", Decimals: 6}
	b := triarb.Asset{Address: "B", Symbol: "SOL", Decimals: 9}
	probe := &triarb.ProbeResult{
		SizeNative: sizeNative,
		SizeRaw:    a.ToRaw(sizeNative),
		ProfitRaw:  a.ToRaw(sizeNative * profitPct / 100),
		ProfitPct:  profitPct,
		ProfitUSD:  profitUSD,
		Leg1:       &triarb.Quote{InAsset: a, OutAsset: b, InAmount: a.ToRaw(sizeNative), OutAmount: a.ToRaw(sizeNative), RouteDescriptor: []byte("leg1-route")},
		Leg2:       &triarb.Quote{InAsset: b, OutAsset: a, InAmount: a.ToRaw(sizeNative), OutAmount: a.ToRaw(sizeNative), RouteDescriptor: []byte("leg2-route")},
		Success:    true,
	}
	return &triarb.Candidate{Pair: triarb.Pair{A: a, B: b}, Probe: probe, Score: 1}
}

func TestTick_ProfitableTradeInSimulation(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 0.40, 0.60)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{
		IterationInterval: time.Hour,
		MinProfitUSD:      0.50,
		TradingEnabled:    false,
		Logger:            zap.NewNop(),
	}, r, oracle, sizer, transport, fakeSigner{}, store, nil)

	l.ctx = context.Background()
	l.tick(context.Background(), 1)

	require.Len(t, store.records, 1)
	executed, ok := store.records[0].Outcome.(triarb.ExecutedOutcome)
	require.True(t, ok)
	assert.Greater(t, executed.ProfitPct, 0.0)
	require.NotEmpty(t, executed.TxIDs)
	assert.Contains(t, executed.TxIDs[0], "simulation_")
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []any
}

func (f *fakeEventPublisher) Broadcast(event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func TestTick_BroadcastsCompletedIterationWhenEventsWired(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 0.40, 0.60)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}
	events := &fakeEventPublisher{}

	l := New(Config{
		IterationInterval: time.Hour,
		MinProfitUSD:      0.50,
		TradingEnabled:    false,
		Logger:            zap.NewNop(),
	}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.SetEvents(events)

	l.ctx = context.Background()
	l.tick(context.Background(), 1)

	require.Len(t, events.events, 1)
	record, ok := events.events[0].(triarb.IterationRecord)
	require.True(t, ok)
	assert.Equal(t, uint64(1), record.Index)
}

func TestTick_BelowUSDFloorIsSkipped(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 0.40, 0.04)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()
	l.tick(context.Background(), 1)

	require.Len(t, store.records, 1)
	skipped, ok := store.records[0].Outcome.(triarb.SkippedOutcome)
	require.True(t, ok)
	assert.Equal(t, triarb.SkipBelowUSDFloor, skipped.Reason)
}

func TestTick_NoEligibleProbeIsNoOp(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: nil}
	transport := &fakeTransport{}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()
	l.tick(context.Background(), 1)

	require.Len(t, store.records, 1)
	_, ok := store.records[0].Outcome.(triarb.NoOpOutcome)
	assert.True(t, ok)
}

func TestTick_BusySwapInFlightIsSkipped(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 1.0, 10.0)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()
	require.True(t, l.inFlight.TryAcquire())

	l.tick(context.Background(), 1)

	require.Len(t, store.records, 1)
	skipped, ok := store.records[0].Outcome.(triarb.SkippedOutcome)
	require.True(t, ok)
	assert.Equal(t, triarb.SkipBusyExecuting, skipped.Reason)
}

func TestTick_RecoversFromPanicAndReleasesInFlight(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, Logger: zap.NewNop()}, r, oracle, panickySizer{}, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()

	require.NotPanics(t, func() {
		l.tick(context.Background(), 1)
	})

	assert.False(t, l.inFlight.InFlight())
	assert.Equal(t, StateIdle, l.State())
}

func TestTick_ManualRotationDeferredToNextTickBoundary(t *testing.T) {
	r := testRing(t, triarb.Asset{Symbol: "SOL"}, triarb.Asset{Symbol: "BONK"})
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 1.0, 10.0)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, TradingEnabled: false, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()

	startingB := r.Current()

	// First tick scans and executes against the original B.
	l.tick(context.Background(), 1)
	require.Len(t, store.records, 1)
	assert.Equal(t, startingB.Symbol, store.records[0].Route.B.Symbol)

	// A rotation request arriving mid-iteration is only honored at the
	// next tick boundary, not retroactively applied to the tick above.
	l.RequestRotation()
	l.tick(context.Background(), 2)

	assert.Len(t, store.records, 1, "a rotation tick must not produce a scan/bookkeeping record")
	assert.NotEqual(t, startingB.Symbol, r.Current().Symbol)
}

func TestTick_Leg2FailureRecordsRealizedLoss(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 1.0, 10.0)}
	transport := &fakeTransport{leg1Success: true, leg2Success: false}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, TradingEnabled: true, LegSettleDelay: time.Millisecond, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()

	l.tick(context.Background(), 1)

	require.Len(t, store.records, 1)
	_, ok := store.records[0].Outcome.(triarb.FailedOutcome)
	require.True(t, ok)

	require.Len(t, sizer.actualUpdates, 1)
	assert.Equal(t, -100.0, sizer.actualUpdates[0])
	assert.False(t, l.inFlight.InFlight(), "the flag must be released after a failed execution")
}

func TestTick_StaleAnchorPriceTriggersForceRefreshBeforeRealizedUSD(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: false}
	sizer := &fakeSizer{candidate: probeCandidate(0.1, 1.0, 10.0)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, TradingEnabled: true, LegSettleDelay: time.Millisecond, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()

	l.tick(context.Background(), 1)

	assert.Equal(t, int32(1), oracle.refreshCalls, "exactly one additional force_refresh before computing realized USD")
	require.Len(t, store.records, 1)
	_, ok := store.records[0].Outcome.(triarb.ExecutedOutcome)
	assert.True(t, ok)
}

func TestTick_IntermediatesOfSizeOneRotationIsNoOp(t *testing.T) {
	r := testRing(t)
	before := r.Current()
	after := r.Advance()
	assert.Equal(t, before.Symbol, after.Symbol)
}

func TestStartShutdown_GracefullyStopsBackgroundGoroutines(t *testing.T) {
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{}
	transport := &fakeTransport{}
	store := &fakeStore{}

	l := New(Config{IterationInterval: time.Millisecond, RotationInterval: time.Hour, ShutdownGrace: time.Second, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)

	require.NoError(t, l.Start(context.Background()))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, l.Shutdown(context.Background()))
}

func TestCandidateWithZeroSize(t *testing.T) {
	// guards against a division-by-zero panic in profit_pct recomputation.
	r := testRing(t)
	oracle := &fakeOracle{price: 100, fresh: true}
	sizer := &fakeSizer{candidate: probeCandidate(0, 1.0, 10.0)}
	transport := &fakeTransport{leg1Success: true, leg2Success: true}
	store := &fakeStore{}

	l := New(Config{MinProfitUSD: 0.50, TradingEnabled: true, LegSettleDelay: time.Millisecond, Logger: zap.NewNop()}, r, oracle, sizer, transport, fakeSigner{}, store, nil)
	l.ctx = context.Background()

	assert.NotPanics(t, func() { l.tick(context.Background(), 1) })
}
