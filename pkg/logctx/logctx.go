// Package logctx builds the application's zap logger and provides
// category-tagged helpers (trade, performance, balance, rpc,
// rotation, arbitrage) that are sugar for setting a "category" field.
//
// Grounded on pkg/config/logger.go's NewLogger (LOG_LEVEL env var,
// zap.NewProductionConfig, JSON encoding, ISO8601 timestamps).
package logctx

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger from the LOG_LEVEL env var
// (debug, info, warn, error; default info).
func New() (*zap.Logger, error) {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func withCategory(logger *zap.Logger, category string) *zap.Logger {
	return logger.With(zap.String("category", category))
}

// Trade returns a logger tagged for trade-lifecycle events.
func Trade(logger *zap.Logger) *zap.Logger { return withCategory(logger, "trade") }

// Performance returns a logger tagged for sizer/performance events.
func Performance(logger *zap.Logger) *zap.Logger { return withCategory(logger, "performance") }

// Balance returns a logger tagged for wallet-balance events.
func Balance(logger *zap.Logger) *zap.Logger { return withCategory(logger, "balance") }

// RPC returns a logger tagged for on-chain RPC/transport events.
func RPC(logger *zap.Logger) *zap.Logger { return withCategory(logger, "rpc") }

// Rotation returns a logger tagged for intermediate-rotation events.
func Rotation(logger *zap.Logger) *zap.Logger { return withCategory(logger, "rotation") }

// Arbitrage returns a logger tagged for search-loop/candidate events.
func Arbitrage(logger *zap.Logger) *zap.Logger { return withCategory(logger, "arbitrage") }
