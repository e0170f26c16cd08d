// Package transport implements the MEV-protected execution path:
// gas/priority randomization, submission jitter, priority-bundle
// submission with standard-RPC fallback, and best-effort
// post-execution monitoring.
//
// The dual simulate/live dispatch shape is grounded on
// internal/execution/executor.go's paper/live mode switch; the
// request-building style of the bundle and RPC paths is grounded on
// internal/execution/order_client.go's typed request/response HTTP
// client pattern, generalized from CLOB order submission to JSON-RPC
// bundle/transaction submission.
package transport

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/solward/triarb/internal/triarb"
	"github.com/solward/triarb/pkg/logctx"
	"go.uber.org/zap"
)

// ErrPrivatePoolNotImplemented is returned by the private-pool path,
// which the aggregator's source declares but never implements (spec
// §9 Open Questions); callers fall through to standard RPC.
var ErrPrivatePoolNotImplemented = errors.New("transport: private pool path not implemented")

// Config configures the Transport.
type Config struct {
	Enabled            bool
	BasePriority       uint64
	MinPriorityFloor   uint64
	RandomizeGas       bool
	MaxSubmitJitter    time.Duration
	UseBundles         bool
	BundleEndpoints    []string
	BundleTimeout      time.Duration
	PrivatePoolEnabled bool
	StandardRPCURL     string
	SettleDelay        time.Duration
	Logger             *zap.Logger
}

// BundleSubmitter sends a single-tx bundle to one endpoint.
type BundleSubmitter interface {
	SubmitBundle(ctx context.Context, endpoint string, signedTx []byte, tip float64) (txid string, err error)
}

// RPCSubmitter sends a raw transaction over standard RPC.
type RPCSubmitter interface {
	SendRawTransaction(ctx context.Context, url string, signedTx []byte) (txid string, err error)
}

// Transport is the MEV Transport component.
type Transport struct {
	cfg      Config
	bundleRR int
	bundles  BundleSubmitter
	rpc      RPCSubmitter
	logger   *zap.Logger
}

// New builds a Transport.
func New(cfg Config, bundles BundleSubmitter, rpc RPCSubmitter) *Transport {
	return &Transport{cfg: cfg, bundles: bundles, rpc: rpc, logger: cfg.Logger}
}

// DeriveParams computes the protection parameters for one execution,
// from size and expected profit pct, exactly per spec §4.5. When the
// MEV transport branch is disabled (mev.enabled=false) it returns the
// unprotected baseline: base priority, no submission delay, no bundle
// tip.
func (t *Transport) DeriveParams(size, maxSize, expectedProfitPct, expectedProfitUSD float64) triarb.ProtectionParams {
	if !t.cfg.Enabled {
		return triarb.ProtectionParams{
			Priority:          t.cfg.BasePriority,
			ProtectionLevel:   triarb.ProtectionLow,
			ExpectedProfitUSD: expectedProfitUSD,
			Size:              size,
			MaxSize:           maxSize,
		}
	}

	priority := t.cfg.BasePriority
	if t.cfg.RandomizeGas {
		factor := 0.8 + rand.Float64()*0.4 // U(0.8, 1.2)
		priority = uint64(float64(t.cfg.BasePriority) * factor)
		if priority < t.cfg.MinPriorityFloor {
			priority = t.cfg.MinPriorityFloor
		}
	}

	sendDelay := time.Duration(0)
	if t.cfg.MaxSubmitJitter > 0 {
		sendDelay = time.Duration(rand.Int63n(int64(t.cfg.MaxSubmitJitter)))
	}
	SubmitJitterSeconds.Observe(sendDelay.Seconds())

	bundleTip := 0.0
	if t.cfg.UseBundles {
		bundleTip = clamp(expectedProfitUSD*0.1, 0.001, 0.01)
	}

	level := 0.6*(size/maxSize) + 0.4*(expectedProfitPct/5)
	protectionLevel := triarb.ProtectionLow
	switch {
	case level >= 0.8:
		protectionLevel = triarb.ProtectionHigh
	case level >= 0.5:
		protectionLevel = triarb.ProtectionMedium
	}

	return triarb.ProtectionParams{
		Priority:          priority,
		SendDelay:         sendDelay,
		BundleTip:         bundleTip,
		ProtectionLevel:   protectionLevel,
		ExpectedProfitUSD: expectedProfitUSD,
		Size:              size,
		MaxSize:           maxSize,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Execute submits signedTx under the submission order described in
// spec §4.5. It never returns an error from the caller's perspective
// — it always returns a populated ExecutionResult.
func (t *Transport) Execute(ctx context.Context, signedTx []byte, params triarb.ProtectionParams) triarb.ExecutionResult {
	if params.SendDelay > 0 {
		select {
		case <-ctx.Done():
			return triarb.ExecutionResult{Success: false, Err: ctx.Err()}
		case <-time.After(params.SendDelay):
		}
	}

	var lastErr error

	if t.cfg.Enabled && t.cfg.UseBundles && t.bundles != nil {
		endpoint := t.nextBundleEndpoint()
		bundleCtx, cancel := context.WithTimeout(ctx, t.cfg.BundleTimeout)
		txid, err := t.bundles.SubmitBundle(bundleCtx, endpoint, signedTx, params.BundleTip)
		cancel()
		if err == nil {
			SubmitMethodTotal.WithLabelValues(string(triarb.MethodBundle)).Inc()
			result := triarb.ExecutionResult{Success: true, TxID: txid, Method: triarb.MethodBundle}
			go t.monitor(txid, params)
			return result
		}
		logctx.RPC(t.logger).Warn("bundle-submit-failed", zap.String("endpoint", endpoint), zap.Error(err))
		lastErr = err
	}

	if t.cfg.Enabled && lastErr != nil && t.cfg.PrivatePoolEnabled && params.ProtectionLevel == triarb.ProtectionHigh {
		if txid, err := t.submitPrivatePool(ctx, signedTx); err == nil {
			SubmitMethodTotal.WithLabelValues(string(triarb.MethodPrivatePool)).Inc()
			result := triarb.ExecutionResult{Success: true, TxID: txid, Method: triarb.MethodPrivatePool}
			go t.monitor(txid, params)
			return result
		} else {
			t.logger.Debug("private-pool-unavailable", zap.Error(err))
			lastErr = err
		}
	}

	txid, err := t.submitStandardRPCWithRetries(ctx, signedTx)
	if err == nil {
		SubmitMethodTotal.WithLabelValues(string(triarb.MethodStandardRPC)).Inc()
		result := triarb.ExecutionResult{Success: true, TxID: txid, Method: triarb.MethodStandardRPC}
		go t.monitor(txid, params)
		return result
	}

	ExecutionFailureTotal.Inc()
	return triarb.ExecutionResult{Success: false, Method: triarb.MethodStandardRPC, Err: err}
}

func (t *Transport) nextBundleEndpoint() string {
	if len(t.cfg.BundleEndpoints) == 0 {
		return ""
	}
	endpoint := t.cfg.BundleEndpoints[t.bundleRR%len(t.cfg.BundleEndpoints)]
	t.bundleRR++
	return endpoint
}

func (t *Transport) submitPrivatePool(ctx context.Context, signedTx []byte) (string, error) {
	return "", ErrPrivatePoolNotImplemented
}

func (t *Transport) submitStandardRPCWithRetries(ctx context.Context, signedTx []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if t.rpc == nil {
			return "", errors.New("transport: no RPC submitter configured")
		}
		txid, err := t.rpc.SendRawTransaction(ctx, t.cfg.StandardRPCURL, signedTx)
		if err == nil {
			return txid, nil
		}
		logctx.RPC(t.logger).Warn("standard-rpc-submit-failed", zap.Int("attempt", attempt+1), zap.Error(err))
		lastErr = err
	}
	return "", lastErr
}

// monitor is a best-effort, purely diagnostic post-execution check.
// It never influences control flow.
func (t *Transport) monitor(txid string, params triarb.ProtectionParams) {
	time.Sleep(t.cfg.SettleDelay)
	logctx.RPC(t.logger).Info("mev-observation",
		zap.String("txid", txid),
		zap.Float64("expected_profit_usd", params.ExpectedProfitUSD),
		zap.Float64("size", params.Size))
}

// CleanupOld is a no-op: the transport holds no accumulating state
// (bundle round-robin index and breaker-free submission paths carry
// no per-pair history) that needs periodic pruning. Kept to satisfy
// the search loop's symmetric sizer/transport cleanup call.
func (t *Transport) CleanupOld() {}
