package triarb

import (
	"context"
	"math/big"
	"time"
)

// Clock is the injectable time source. Components that take a Clock
// read NowWall; the quote client's retry backoffs, rate limiter and
// circuit breaker read the time package directly.
type Clock interface {
	NowMonotonic() time.Time
	NowWall() time.Time
}

// SystemClock wraps time.Now(). Go's time.Time already carries a
// monotonic reading alongside the wall clock, so both methods read
// the same underlying value; separate methods exist so call sites
// never have to reason about which is which.
type SystemClock struct{}

func (SystemClock) NowMonotonic() time.Time { return time.Now() }
func (SystemClock) NowWall() time.Time      { return time.Now() }

// Signer exposes a public key and can sign a serialized transaction.
// The core never persists private material.
type Signer interface {
	PublicKey() []byte
	Sign(ctx context.Context, rawTx []byte) ([]byte, error)
}

// TokenDirectory provides the anchor asset, the ordered ring of
// intermediates, and on-chain balances.
type TokenDirectory interface {
	Anchor() Asset
	Intermediates() []Asset
	Balance(ctx context.Context, a Asset) (*big.Int, error)
}

// QuoteClient fetches a single-leg quote from the aggregator.
type QuoteClient interface {
	Quote(ctx context.Context, in, out Asset, amount *big.Int, slippageBps int) (*Quote, error)
}

// Transport executes a signed transaction under MEV protection.
type Transport interface {
	Execute(ctx context.Context, signedTx []byte, params ProtectionParams) ExecutionResult
}

// PriceOracle maintains the current USD price of the anchor asset.
type PriceOracle interface {
	Current() (price float64, fresh bool)
	ForceRefresh(ctx context.Context) error
	Volatility() float64
	Trend() TrendLabel
}

// ProtectionParams are the MEV-protection parameters derived once per
// execution.
type ProtectionParams struct {
	Priority         uint64
	SendDelay        time.Duration
	BundleTip        float64
	ProtectionLevel  ProtectionLevel
	ExpectedProfitUSD float64
	Size             float64
	MaxSize          float64
}

// ProtectionLevel is the coarse MEV-exposure classification derived
// from size and expected profit.
type ProtectionLevel string

const (
	ProtectionHigh   ProtectionLevel = "HIGH"
	ProtectionMedium ProtectionLevel = "MEDIUM"
	ProtectionLow    ProtectionLevel = "LOW"
)
