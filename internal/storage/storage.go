// Package storage persists completed search-loop iterations, the way
// the teacher's storage.go persisted detected arbitrage opportunities:
// one interface, a console implementation for local runs, a Postgres
// implementation for production.
package storage

import (
	"context"

	"github.com/solward/triarb/internal/triarb"
)

// Storage is the interface for persisting iteration records. It
// satisfies internal/loop's Store interface.
type Storage interface {
	StoreIteration(ctx context.Context, record triarb.IterationRecord) error
	Close() error
}

// outcomeFields extracts the flat columns every storage backend
// needs out of the closed Outcome sum type.
type outcomeFields struct {
	kind      string
	profitPct float64
	profitUSD float64
	txIDs     []string
	reason    string
	errKind   string
	message   string
}

func extractOutcome(outcome triarb.Outcome) outcomeFields {
	switch o := outcome.(type) {
	case triarb.NoOpOutcome:
		return outcomeFields{kind: "no_op"}
	case triarb.SkippedOutcome:
		return outcomeFields{kind: "skipped", reason: string(o.Reason)}
	case triarb.ExecutedOutcome:
		return outcomeFields{
			kind:      "executed",
			profitPct: o.ProfitPct,
			profitUSD: o.ProfitUSD,
			txIDs:     o.TxIDs,
		}
	case triarb.FailedOutcome:
		return outcomeFields{kind: "failed", errKind: string(o.Kind), message: o.Message}
	default:
		return outcomeFields{kind: "unknown"}
	}
}
