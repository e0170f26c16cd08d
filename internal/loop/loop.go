// Package loop implements the Search Loop: the periodic driver that
// scans one (anchor, intermediate) route per tick, sizes a candidate,
// and — if eligible and not already mid-execution — submits it.
//
// The Start/Shutdown task-supervisor shape is grounded on
// internal/app/run.go and internal/app/shutdown.go's single
// context.Context + sync.WaitGroup convention, written self-
// consistently rather than inheriting that pair's field-name
// mismatches (see DESIGN.md).
package loop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solward/triarb/internal/ring"
	"github.com/solward/triarb/internal/singleflight"
	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

// State is one node of the search loop's per-tick state machine.
type State string

const (
	StateIdle       State = "Idle"
	StateScanning   State = "Scanning"
	StateNoOp       State = "NoOp"
	StateExecuting  State = "Executing"
	StateBookkeeping State = "Bookkeeping"
	StateCancelled  State = "Cancelled"
)

// Sizer is the subset of the Dynamic Sizer the loop depends on.
type Sizer interface {
	FindOptimal(ctx context.Context, a, b triarb.Asset, anchorUSD float64) (*triarb.Candidate, error)
	UpdateActual(pair triarb.Pair, size float64, realizedProfitPct float64, success bool)
	CleanupOld(pairs []triarb.Pair)
}

// Transport is the subset of the MEV Transport the loop depends on.
type Transport interface {
	Execute(ctx context.Context, signedTx []byte, params triarb.ProtectionParams) triarb.ExecutionResult
	DeriveParams(size, maxSize, expectedProfitPct, expectedProfitUSD float64) triarb.ProtectionParams
	CleanupOld()
}

// Store persists completed iterations. Grounded on
// internal/storage.Storage, generalized to IterationRecord.
type Store interface {
	StoreIteration(ctx context.Context, record triarb.IterationRecord) error
}

// EventPublisher pushes a finished iteration to live /ws/events
// subscribers. Implemented by httpserver.EventBroadcaster; kept as a
// small interface here so the loop doesn't depend on the httpserver
// package's connection-handling internals.
type EventPublisher interface {
	Broadcast(event any)
}

// Config configures the Search Loop, mirroring spec §4.1/§4.7.
type Config struct {
	IterationInterval time.Duration
	RotationInterval  time.Duration
	MinProfitUSD      float64
	MaxSize           float64
	TradingEnabled    bool
	LegSettleDelay    time.Duration
	ShutdownGrace     time.Duration
	Logger            *zap.Logger
}

// Loop is the Search Loop component.
type Loop struct {
	cfg       Config
	ring      *ring.Ring
	oracle    triarb.PriceOracle
	sizer     Sizer
	transport Transport
	signer    triarb.Signer
	store     Store
	clock     triarb.Clock
	logger    *zap.Logger

	inFlight       singleflight.Flag
	manualRotation chanFlag
	index          uint64
	state          atomic.Value // State
	events         EventPublisher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// State returns the current node of the per-tick state machine,
// useful for health/status reporting.
func (l *Loop) State() State {
	if v, ok := l.state.Load().(State); ok {
		return v
	}
	return StateIdle
}

func (l *Loop) setState(s State) {
	if prev, ok := l.state.Load().(State); ok {
		StateGauge.WithLabelValues(string(prev)).Set(0)
	}
	l.state.Store(s)
	StateGauge.WithLabelValues(string(s)).Set(1)
}

// chanFlag is a single-slot, non-blocking request queue: setting it
// twice before it's consumed collapses to one pending request.
type chanFlag chan struct{}

func newChanFlag() chanFlag { return make(chanFlag, 1) }

func (c chanFlag) request() {
	select {
	case c <- struct{}{}:
	default:
	}
}

func (c chanFlag) consume() bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

// New builds a Loop.
func New(cfg Config, r *ring.Ring, oracle triarb.PriceOracle, sizer Sizer, transport Transport, signer triarb.Signer, store Store, clock triarb.Clock) *Loop {
	if clock == nil {
		clock = triarb.SystemClock{}
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 15 * time.Second
	}
	return &Loop{
		cfg:            cfg,
		ring:           r,
		oracle:         oracle,
		sizer:          sizer,
		transport:      transport,
		signer:         signer,
		store:          store,
		clock:          clock,
		logger:         cfg.Logger,
		manualRotation: newChanFlag(),
	}
}

// SetEvents wires a live-event publisher, pushed one IterationRecord
// per completed tick. Optional; nil means no /ws/events fan-out.
func (l *Loop) SetEvents(events EventPublisher) {
	l.events = events
}

// RequestRotation queues a manual intermediate-rotation request,
// applied at the next tick boundary rather than mid-iteration.
func (l *Loop) RequestRotation() {
	l.manualRotation.request()
}

// Start launches the search ticker and rotation ticker goroutines.
func (l *Loop) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.searchLoop()

	if l.cfg.RotationInterval > 0 {
		l.wg.Add(1)
		go l.rotationLoop()
	}

	l.logger.Info("search-loop-started",
		zap.Duration("iteration-interval", l.cfg.IterationInterval),
		zap.Bool("trading-enabled", l.cfg.TradingEnabled))
	return nil
}

// Shutdown cancels the loop's context and waits up to ShutdownGrace
// for in-flight work to finish.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(l.cfg.ShutdownGrace):
		return fmt.Errorf("loop: shutdown grace period exceeded")
	}
}

func (l *Loop) searchLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.IterationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.index++
			l.tick(l.ctx, l.index)
		}
	}
}

func (l *Loop) rotationLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.RotationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.RequestRotation()
		}
	}
}
