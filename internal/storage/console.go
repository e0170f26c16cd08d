package storage

import (
	"context"
	"fmt"

	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreIteration pretty-prints a finished search-loop iteration to console.
func (c *ConsoleStorage) StoreIteration(ctx context.Context, record triarb.IterationRecord) error {
	fields := extractOutcome(record.Outcome)

	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ITERATION #%d [%s]\n", record.Index, fields.kind)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", record.ID)
	fmt.Printf("Route:    %s -> %s\n", record.Route.A.Symbol, record.Route.B.Symbol)
	fmt.Printf("Time:     %s\n", record.StartedAt.Format("2006-01-02 15:04:05"))

	switch fields.kind {
	case "executed":
		fmt.Printf("  Profit:   %.4f%% ($%.2f)\n", fields.profitPct, fields.profitUSD)
		fmt.Printf("  TxIDs:    %v\n", fields.txIDs)
	case "skipped":
		fmt.Printf("  Reason:   %s\n", fields.reason)
	case "failed":
		fmt.Printf("  Error:    %s: %s\n", fields.errKind, fields.message)
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
