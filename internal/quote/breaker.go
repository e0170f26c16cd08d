package quote

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// state is the circuit breaker's internal lifecycle, adapted from the
// atomic-state / background-timer shape of the balance circuit
// breaker this codebase's teacher ships, re-purposed from balance
// hysteresis to classic consecutive-failure counting.
type state int32

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker fails calls fast once consecutive failures reach Threshold,
// until Timeout elapses, after which exactly one trial call is
// permitted.
type Breaker struct {
	threshold int32
	timeout   time.Duration
	logger    *zap.Logger

	st              atomic.Int32
	consecutiveFail atomic.Int32
	openedAtUnixNs  atomic.Int64
	halfOpenTrial   atomic.Bool
}

// NewBreaker builds a Breaker that opens after threshold consecutive
// failures and attempts a half-open trial after timeout elapses.
func NewBreaker(threshold int, timeout time.Duration, logger *zap.Logger) *Breaker {
	return &Breaker{
		threshold: int32(threshold),
		timeout:   timeout,
		logger:    logger,
	}
}

// Allow reports whether a call may proceed. While open and before
// timeout it returns false without issuing any I/O. Once timeout has
// elapsed it admits exactly one half-open trial call.
func (b *Breaker) Allow() bool {
	switch state(b.st.Load()) {
	case stateClosed:
		return true
	case stateHalfOpen:
		return false // a trial is already in flight
	default: // stateOpen
		openedAt := time.Unix(0, b.openedAtUnixNs.Load())
		if time.Since(openedAt) < b.timeout {
			return false
		}
		if b.st.CompareAndSwap(int32(stateOpen), int32(stateHalfOpen)) {
			b.halfOpenTrial.Store(true)
			BreakerStateGauge.Set(float64(stateHalfOpen))
			b.logger.Info("circuit-breaker-half-open-trial")
			return true
		}
		return false
	}
}

// RecordSuccess resets the consecutive-failure counter to zero and
// closes the breaker if it was open or half-open.
func (b *Breaker) RecordSuccess() {
	b.consecutiveFail.Store(0)
	if state(b.st.Load()) != stateClosed {
		b.st.Store(int32(stateClosed))
		b.halfOpenTrial.Store(false)
		BreakerStateGauge.Set(float64(stateClosed))
		b.logger.Info("circuit-breaker-closed")
	}
}

// RecordFailure increments the consecutive-failure counter, opening
// the breaker once it reaches the threshold. A failed half-open trial
// reopens immediately.
func (b *Breaker) RecordFailure() {
	if state(b.st.Load()) == stateHalfOpen {
		b.trip()
		return
	}

	count := b.consecutiveFail.Add(1)
	if count >= b.threshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.st.Store(int32(stateOpen))
	b.halfOpenTrial.Store(false)
	b.openedAtUnixNs.Store(time.Now().UnixNano())
	BreakerStateGauge.Set(float64(stateOpen))
	BreakerTripTotal.Inc()
	b.logger.Warn("circuit-breaker-opened")
}

// State exposes the current state for tests and status endpoints.
func (b *Breaker) State() string {
	switch state(b.st.Load()) {
	case stateClosed:
		return "closed"
	case stateHalfOpen:
		return "half-open"
	default:
		return "open"
	}
}
