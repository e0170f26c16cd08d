package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solward/triarb/internal/triarb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBundleSubmitter struct {
	err      error
	txid     string
	attempts int
}

func (f *fakeBundleSubmitter) SubmitBundle(ctx context.Context, endpoint string, signedTx []byte, tip float64) (string, error) {
	f.attempts++
	if f.err != nil {
		return "", f.err
	}
	return f.txid, nil
}

type fakeRPCSubmitter struct {
	failFirstN int
	calls      int
	txid       string
}

func (f *fakeRPCSubmitter) SendRawTransaction(ctx context.Context, url string, signedTx []byte) (string, error) {
	f.calls++
	if f.calls <= f.failFirstN {
		return "", errors.New("rpc unavailable")
	}
	return f.txid, nil
}

func TestDeriveParams_ProtectionLevelThresholds(t *testing.T) {
	tr := New(Config{Enabled: true, BasePriority: 100, Logger: zap.NewNop()}, nil, nil)

	high := tr.DeriveParams(90, 100, 5, 10)
	assert.Equal(t, triarb.ProtectionHigh, high.ProtectionLevel)

	low := tr.DeriveParams(1, 100, 0.1, 1)
	assert.Equal(t, triarb.ProtectionLow, low.ProtectionLevel)
}

func TestDeriveParams_BundleTipClamped(t *testing.T) {
	tr := New(Config{Enabled: true, UseBundles: true, Logger: zap.NewNop()}, nil, nil)

	p := tr.DeriveParams(10, 100, 1, 1000)
	assert.Equal(t, 0.01, p.BundleTip, "tip must be clamped to the upper bound")

	p2 := tr.DeriveParams(10, 100, 1, 0.0001)
	assert.Equal(t, 0.001, p2.BundleTip, "tip must be clamped to the lower bound")
}

func TestExecute_BundleSuccessReturnsMethodBundle(t *testing.T) {
	bundles := &fakeBundleSubmitter{txid: "tx-bundle"}
	tr := New(Config{Enabled: true, UseBundles: true, BundleEndpoints: []string{"http://a"}, BundleTimeout: time.Second, Logger: zap.NewNop()}, bundles, nil)

	result := tr.Execute(context.Background(), []byte("tx"), triarb.ProtectionParams{})
	require.True(t, result.Success)
	assert.Equal(t, triarb.MethodBundle, result.Method)
	assert.Equal(t, "tx-bundle", result.TxID)
}

func TestExecute_BundleFailureFallsBackToStandardRPC(t *testing.T) {
	bundles := &fakeBundleSubmitter{err: errors.New("bundle rejected")}
	rpc := &fakeRPCSubmitter{txid: "tx-rpc"}
	tr := New(Config{Enabled: true, UseBundles: true, BundleEndpoints: []string{"http://a"}, BundleTimeout: time.Second, Logger: zap.NewNop()}, bundles, rpc)

	result := tr.Execute(context.Background(), []byte("tx"), triarb.ProtectionParams{})
	require.True(t, result.Success)
	assert.Equal(t, triarb.MethodStandardRPC, result.Method)
	assert.Equal(t, "tx-rpc", result.TxID)
}

func TestExecute_StandardRPCRetriesUpToThreeTimes(t *testing.T) {
	rpc := &fakeRPCSubmitter{failFirstN: 2, txid: "tx-rpc"}
	tr := New(Config{Logger: zap.NewNop()}, nil, rpc)

	result := tr.Execute(context.Background(), []byte("tx"), triarb.ProtectionParams{})
	require.True(t, result.Success)
	assert.Equal(t, 3, rpc.calls)
}

func TestExecute_AllPathsExhaustedReturnsFailureNotError(t *testing.T) {
	rpc := &fakeRPCSubmitter{failFirstN: 10, txid: "tx-rpc"}
	tr := New(Config{Logger: zap.NewNop()}, nil, rpc)

	result := tr.Execute(context.Background(), []byte("tx"), triarb.ProtectionParams{})
	assert.False(t, result.Success)
	assert.Error(t, result.Err)
}

func TestExecute_PrivatePoolStubFallsThroughToStandardRPC(t *testing.T) {
	bundles := &fakeBundleSubmitter{err: errors.New("bundle rejected")}
	rpc := &fakeRPCSubmitter{txid: "tx-rpc"}
	tr := New(Config{
		Enabled:            true,
		UseBundles:         true,
		BundleEndpoints:    []string{"http://a"},
		BundleTimeout:      time.Second,
		PrivatePoolEnabled: true,
		Logger:             zap.NewNop(),
	}, bundles, rpc)

	result := tr.Execute(context.Background(), []byte("tx"), triarb.ProtectionParams{ProtectionLevel: triarb.ProtectionHigh})
	require.True(t, result.Success)
	assert.Equal(t, triarb.MethodStandardRPC, result.Method)
}

func TestDeriveParams_DisabledReturnsUnprotectedBaseline(t *testing.T) {
	tr := New(Config{Enabled: false, BasePriority: 100, UseBundles: true, RandomizeGas: true, MaxSubmitJitter: time.Second}, nil, nil)

	p := tr.DeriveParams(90, 100, 5, 10)
	assert.Equal(t, uint64(100), p.Priority)
	assert.Equal(t, time.Duration(0), p.SendDelay)
	assert.Equal(t, 0.0, p.BundleTip)
	assert.Equal(t, triarb.ProtectionLow, p.ProtectionLevel)
}

func TestExecute_DisabledSkipsBundlesAndPrivatePool(t *testing.T) {
	bundles := &fakeBundleSubmitter{txid: "tx-bundle"}
	rpc := &fakeRPCSubmitter{txid: "tx-rpc"}
	tr := New(Config{
		Enabled:            false,
		UseBundles:         true,
		BundleEndpoints:    []string{"http://a"},
		BundleTimeout:      time.Second,
		PrivatePoolEnabled: true,
		Logger:             zap.NewNop(),
	}, bundles, rpc)

	result := tr.Execute(context.Background(), []byte("tx"), triarb.ProtectionParams{ProtectionLevel: triarb.ProtectionHigh})
	require.True(t, result.Success)
	assert.Equal(t, triarb.MethodStandardRPC, result.Method)
	assert.Equal(t, 0, bundles.attempts, "bundle submitter must not be called while disabled")
}

func TestExecute_RespectsContextCancellationDuringSendDelay(t *testing.T) {
	tr := New(Config{Logger: zap.NewNop()}, nil, &fakeRPCSubmitter{txid: "tx"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := tr.Execute(ctx, []byte("tx"), triarb.ProtectionParams{SendDelay: time.Second})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, context.Canceled)
}
