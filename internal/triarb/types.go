// Package triarb holds the data types shared by every core component:
// assets, quotes, probe results, iteration records, and the classified
// error taxonomy used to convert failures into outcomes at tick
// boundaries.
package triarb

import (
	"math/big"
	"time"
)

// Asset identifies a token the aggregator can quote. Equality is by
// Address.
type Asset struct {
	Address  string
	Symbol   string
	Decimals int
}

// Equal reports whether two assets share the same address.
func (a Asset) Equal(other Asset) bool {
	return a.Address == other.Address
}

// ToRaw converts a decimal-native amount to the asset's smallest unit.
func (a Asset) ToRaw(native float64) *big.Int {
	scale := new(big.Float).SetFloat64(pow10(a.Decimals))
	scaled := new(big.Float).Mul(big.NewFloat(native), scale)
	raw, _ := scaled.Int(nil)
	return raw
}

// ToNative converts a raw amount back to a decimal-native float for
// display and USD computations. Lossy by design (spec: conversion to a
// displayable decimal is used only for logging and USD computations).
func (a Asset) ToNative(raw *big.Int) float64 {
	f := new(big.Float).SetInt(raw)
	scale := pow10(a.Decimals)
	result, _ := new(big.Float).Quo(f, big.NewFloat(scale)).Float64()
	return result
}

func pow10(n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}

// Quote is the result of asking the aggregator for a single-leg swap.
// A Quote is valid iff OutAmount is positive.
type Quote struct {
	InAsset         Asset
	OutAsset        Asset
	InAmount        *big.Int
	OutAmount       *big.Int
	PriceImpactPct  float64
	RouteDescriptor []byte
}

// Valid reports whether the quote carries a usable output amount.
func (q *Quote) Valid() bool {
	return q != nil && q.OutAmount != nil && q.OutAmount.Sign() > 0
}

// ProbeResult is the outcome of quoting both legs of a round trip for
// one candidate input size.
type ProbeResult struct {
	SizeRaw       *big.Int
	SizeNative    float64
	Leg1          *Quote
	Leg2          *Quote
	ProfitRaw     *big.Int
	ProfitPct     float64
	ProfitUSD     float64
	TotalValueUSD float64
	TotalImpact   float64
	MeetsPct      bool
	MeetsUSD      bool
	MeetsImpact   bool
	Success       bool
	FailureReason string
	Score         float64
	Timestamp     time.Time
}

// Candidate is the winning probe selected by the sizer for possible
// execution.
type Candidate struct {
	Pair   Pair
	Probe  *ProbeResult
	Score  float64
}

// Pair identifies an (anchor, intermediate) route.
type Pair struct {
	A Asset
	B Asset
}

// Key returns a stable cache/map key for the pair.
func (p Pair) Key() string {
	return p.A.Symbol + ":" + p.B.Symbol
}

// TrendLabel classifies the recent direction of the anchor price.
type TrendLabel string

const (
	TrendRising  TrendLabel = "RISING"
	TrendFalling TrendLabel = "FALLING"
	TrendStable  TrendLabel = "STABLE"
)

// PriceSample is one observation of the anchor's USD price.
type PriceSample struct {
	Timestamp           time.Time
	PriceUSD            float64
	ContributingSources []string
}

// ExecutionResult is the outcome of attempting to submit a signed
// transaction through the MEV transport.
type ExecutionResult struct {
	Success bool
	TxID    string
	Method  SubmitMethod
	Err     error
}

// SubmitMethod names the transport path that produced (or attempted)
// an ExecutionResult.
type SubmitMethod string

const (
	MethodBundle      SubmitMethod = "bundle"
	MethodPrivatePool SubmitMethod = "private_pool"
	MethodStandardRPC SubmitMethod = "standard_rpc"
)

// Leg identifies which half of a round trip a value refers to.
type Leg int

const (
	Leg1 Leg = iota
	Leg2
)

// Outcome is the closed sum type for an iteration's result.
type Outcome interface {
	outcomeTag()
}

// NoOpOutcome records an iteration that found no eligible candidate.
type NoOpOutcome struct{}

func (NoOpOutcome) outcomeTag() {}

// SkippedOutcome records an iteration that deliberately did not act.
type SkippedOutcome struct {
	Reason SkipReason
}

func (SkippedOutcome) outcomeTag() {}

// SkipReason enumerates why an iteration was skipped rather than executed.
type SkipReason string

const (
	SkipBusyExecuting SkipReason = "BusyExecuting"
	SkipBelowUSDFloor SkipReason = "BelowUsdFloor"
)

// ExecutedOutcome records a completed execution attempt.
type ExecutedOutcome struct {
	ProfitPct float64
	ProfitUSD float64
	TxIDs     []string
	Legs      []*Quote
}

func (ExecutedOutcome) outcomeTag() {}

// FailedOutcome records a failure classified by ErrorKind.
type FailedOutcome struct {
	Kind    ErrorKind
	Message string
}

func (FailedOutcome) outcomeTag() {}

// IterationRecord is the bookkeeping unit produced by one search-loop
// tick.
type IterationRecord struct {
	ID          string
	Index       uint64
	StartedAt   time.Time
	Route       Pair
	PickedSize  *big.Int
	Outcome     Outcome
}

// PerformanceEntry is the historical-learning record kept per (A,B) pair.
type PerformanceEntry struct {
	BestSizeRaw     *big.Int
	BestProfitPct   float64
	RecentSamples   []ProbeResult
	TotalTrades     int
	SuccessfulTrades int
	UpdatedAt       time.Time
}

// ErrorKind is the closed error taxonomy from the error-handling design.
type ErrorKind string

const (
	ErrTransient      ErrorKind = "Transient"
	ErrRateLimited    ErrorKind = "RateLimited"
	ErrCircuitOpen    ErrorKind = "CircuitOpen"
	ErrQuoteInvalid   ErrorKind = "QuoteInvalid"
	ErrClientError    ErrorKind = "ClientError"
	ErrExecutionFailed ErrorKind = "ExecutionFailed"
	ErrFatal          ErrorKind = "Fatal"
)

// ClassifiedError wraps an underlying error with its taxonomy kind,
// grounded on the teacher's typed-error-with-code style
// (pkg/types/errors.go's OrderError).
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify wraps err with kind, or returns nil if err is nil.
func Classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to ErrTransient
// when err is not a *ClassifiedError.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if err == nil {
		return ""
	}
	if ce, ok := asClassified(err); ok {
		return ce.Kind
	}
	_ = ce
	return ErrTransient
}

func asClassified(err error) (*ClassifiedError, bool) {
	ce, ok := err.(*ClassifiedError)
	return ce, ok
}
