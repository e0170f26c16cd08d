package app

import (
	"testing"
	"time"

	"github.com/solward/triarb/internal/loop"
	"github.com/solward/triarb/internal/oracle"
	"github.com/solward/triarb/internal/ring"
	"github.com/solward/triarb/internal/triarb"
	"github.com/solward/triarb/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testApp(t *testing.T) *App {
	anchor := triarb.Asset{Symbol: "USDC", Decimals: 6}
	weth := triarb.Asset{Symbol: "WETH", Decimals: 18}

	r, err := ring.New(anchor, []triarb.Asset{weth}, "0xWallet", nil)
	require.NoError(t, err)

	o := oracle.New(oracle.Config{Logger: zap.NewNop(), RefreshInterval: time.Minute})

	l := loop.New(loop.Config{Logger: zap.NewNop()}, r, o, nil, nil, nil, nil, nil)

	return &App{
		cfg:    &config.Config{TradingEnabled: true},
		logger: zap.NewNop(),
		ring:   r,
		oracle: o,
		loop:   l,
	}
}

func TestStatusSnapshot_ReportsRingAndOracleState(t *testing.T) {
	a := testApp(t)

	snap := a.StatusSnapshot()

	assert.Equal(t, "USDC", snap.Anchor)
	assert.Equal(t, "WETH", snap.Intermediate)
	assert.Equal(t, string(loop.StateIdle), snap.State)
	assert.False(t, snap.PriceFresh)
	assert.True(t, snap.TradingActive)
}
