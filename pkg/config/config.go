// Package config loads the application's configuration from
// environment variables, the way the teacher's pkg/config.Config did:
// typed default-fallback helpers gathered into one immutable struct,
// validated once.
package config

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/solward/triarb/internal/triarb"
)

// SizeStrategy selects the Dynamic Sizer's probe-size distribution.
type SizeStrategy string

const (
	StrategyStepped SizeStrategy = "stepped"
	StrategyOptimal SizeStrategy = "optimal"
)

// BalanceSource is the Token Directory balance lookup consulted once
// by ClampToBalance to clamp MaxTradeSize and gate TradingEnabled.
// Implemented by internal/ring.Ring, which already carries the
// configured wallet address.
type BalanceSource interface {
	Balance(ctx context.Context, a triarb.Asset) (*big.Int, error)
}

// Config holds every recognized option from spec §4.1's table.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Aggregator / RPC endpoints
	QuoteBaseURL   string
	StandardRPCURL string
	WalletAddress  string

	// Trading
	TradingEnabled bool
	MaxTradeSize   float64
	MinTradeSize   float64

	// Dynamic Sizer
	SizeStrategy         SizeStrategy
	SizeTests            int
	PreferredPercentages []int
	MinProfitPct         float64
	MinProfitUSD         float64
	MaxPriceImpactPct    float64
	MaxSlippageBps       int
	ProbeDelay           time.Duration

	// Search Loop
	IterationInterval time.Duration
	RotationInterval  time.Duration

	// MEV Transport
	MEVEnabled          bool
	MEVUseBundles       bool
	MEVRandomizeGas     bool
	MEVMaxSubmitJitter  time.Duration
	MEVBundleTimeout    time.Duration
	MEVBasePriority     uint64
	MEVMinPriorityFloor uint64
	MEVBundleEndpoints  []string
	MEVPrivatePool      bool

	// Quote Client
	QuoteMinInterval    time.Duration
	QuoteMaxPerMinute   int
	QuoteCircuitThresh  int
	QuoteCircuitTimeout time.Duration

	// Price Oracle
	PriceRefreshInterval time.Duration
	PriceBandMin         float64
	PriceBandMax         float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// Load reads configuration from the environment, applies defaults per
// spec §4.1, and validates everything that doesn't require an RPC call.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		QuoteBaseURL:   getEnvOrDefault("TRIARB_QUOTE_BASE_URL", ""),
		StandardRPCURL: getEnvOrDefault("TRIARB_RPC_URL", ""),
		WalletAddress:  os.Getenv("TRIARB_WALLET_ADDRESS"),

		TradingEnabled: getBoolOrDefault("TRIARB_TRADING_ENABLED", false),
		MaxTradeSize:   getFloat64OrDefault("TRIARB_MAX_TRADE_SIZE", 0.1),
		MinTradeSize:   getFloat64OrDefault("TRIARB_MIN_TRADE_SIZE", 0.005),

		SizeStrategy:         SizeStrategy(getEnvOrDefault("TRIARB_SIZE_STRATEGY", string(StrategyOptimal))),
		SizeTests:            getIntOrDefault("TRIARB_SIZE_TESTS", 5),
		PreferredPercentages: getIntListOrDefault("TRIARB_PREFERRED_PERCENTAGES", []int{10, 25, 50, 75, 90}),
		MinProfitPct:         getFloat64OrDefault("TRIARB_MIN_PROFIT_PCT", 0.3),
		MinProfitUSD:         getFloat64OrDefault("TRIARB_MIN_PROFIT_USD", 0.50),
		MaxPriceImpactPct:    getFloat64OrDefault("TRIARB_MAX_PRICE_IMPACT_PCT", 2.0),
		MaxSlippageBps:       getIntOrDefault("TRIARB_MAX_SLIPPAGE_BPS", 100),
		ProbeDelay:           getDurationMsOrDefault("TRIARB_PROBE_DELAY_MS", 500*time.Millisecond),

		IterationInterval: getDurationMsOrDefault("TRIARB_ITERATION_INTERVAL_MS", 8000*time.Millisecond),
		RotationInterval:  getDurationMsOrDefault("TRIARB_ROTATION_INTERVAL_MS", 120000*time.Millisecond),

		MEVEnabled:          getBoolOrDefault("TRIARB_MEV_ENABLED", false),
		MEVUseBundles:       getBoolOrDefault("TRIARB_MEV_USE_BUNDLES", false),
		MEVRandomizeGas:     getBoolOrDefault("TRIARB_MEV_RANDOMIZE_GAS", false),
		MEVMaxSubmitJitter:  getDurationMsOrDefault("TRIARB_MEV_MAX_SUBMIT_JITTER_MS", 2000*time.Millisecond),
		MEVBundleTimeout:    getDurationMsOrDefault("TRIARB_MEV_BUNDLE_TIMEOUT_MS", 30000*time.Millisecond),
		MEVBasePriority:     getUint64OrDefault("TRIARB_MEV_BASE_PRIORITY", 1000),
		MEVMinPriorityFloor: getUint64OrDefault("TRIARB_MEV_MIN_PRIORITY_FLOOR", 100),
		MEVBundleEndpoints:  getStringListOrDefault("TRIARB_MEV_BUNDLE_ENDPOINTS", nil),
		MEVPrivatePool:      getBoolOrDefault("TRIARB_MEV_PRIVATE_POOL_ENABLED", false),

		QuoteMinInterval:    getDurationMsOrDefault("TRIARB_QUOTE_MIN_INTERVAL_MS", 2000*time.Millisecond),
		QuoteMaxPerMinute:   getIntOrDefault("TRIARB_QUOTE_MAX_PER_MINUTE", 30),
		QuoteCircuitThresh:  getIntOrDefault("TRIARB_QUOTE_CIRCUIT_THRESHOLD", 5),
		QuoteCircuitTimeout: getDurationMsOrDefault("TRIARB_QUOTE_CIRCUIT_TIMEOUT_MS", 60000*time.Millisecond),

		PriceRefreshInterval: getDurationMsOrDefault("TRIARB_PRICE_REFRESH_INTERVAL_MS", 30000*time.Millisecond),
		PriceBandMin:         getFloat64OrDefault("TRIARB_PRICE_BAND_MIN", 1),
		PriceBandMax:         getFloat64OrDefault("TRIARB_PRICE_BAND_MAX", 10000),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "triarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "triarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "triarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.validateStatic(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validateStatic() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	if c.SizeStrategy != StrategyStepped && c.SizeStrategy != StrategyOptimal {
		return fmt.Errorf("TRIARB_SIZE_STRATEGY must be 'stepped' or 'optimal', got %q", c.SizeStrategy)
	}
	if c.MinTradeSize <= 0 || c.MinTradeSize >= c.MaxTradeSize {
		return fmt.Errorf("TRIARB_MIN_TRADE_SIZE must be positive and less than TRIARB_MAX_TRADE_SIZE")
	}
	if c.SizeTests < 2 {
		return fmt.Errorf("TRIARB_SIZE_TESTS must be at least 2, got %d", c.SizeTests)
	}
	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}
	return nil
}

// ClampToBalance performs the Token Directory startup gate (spec §6):
// the anchor balance is queried once, MaxTradeSize is clamped to 90%
// of it when exceeded, and TradingEnabled is forced false when the
// anchor balance is zero.
func (c *Config) ClampToBalance(ctx context.Context, balances BalanceSource, anchor triarb.Asset) error {
	raw, err := balances.Balance(ctx, anchor)
	if err != nil {
		return fmt.Errorf("query anchor balance: %w", err)
	}

	balanceNative := anchor.ToNative(raw)
	if balanceNative == 0 {
		c.TradingEnabled = false
		return nil
	}
	if c.MaxTradeSize > balanceNative {
		c.MaxTradeSize = math.Floor(0.9*balanceNative*1e8) / 1e8
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getIntOrDefault(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDurationMsOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

func getIntListOrDefault(key string, defaultValue []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

func getStringListOrDefault(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
