package storage

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/solward/triarb/internal/triarb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRecord() triarb.IterationRecord {
	anchor := triarb.Asset{Symbol: "USDC", Decimals: 6}
	weth := triarb.Asset{Symbol: "WETH", Decimals: 18}
	return triarb.IterationRecord{
		ID:         "rec-1",
		Index:      42,
		StartedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Route:      triarb.Pair{A: anchor, B: weth},
		PickedSize: big.NewInt(1_000_000),
		Outcome: triarb.ExecutedOutcome{
			ProfitPct: 0.8,
			ProfitUSD: 1.25,
			TxIDs:     []string{"tx1", "tx2"},
		},
	}
}

func TestConsoleStorage_New(t *testing.T) {
	logger := zap.NewNop()
	storage := NewConsoleStorage(logger)
	assert.NotNil(t, storage)
}

func TestConsoleStorage_StoreIteration(t *testing.T) {
	logger := zap.NewNop()
	storage := NewConsoleStorage(logger)
	record := testRecord()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := storage.StoreIteration(context.Background(), record)

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	require.NoError(t, err)
	assert.Contains(t, output, "ITERATION #42")
	assert.Contains(t, output, "USDC -> WETH")
	assert.Contains(t, output, "executed")
}

func TestConsoleStorage_Close(t *testing.T) {
	storage := NewConsoleStorage(zap.NewNop())
	assert.NoError(t, storage.Close())
}

func TestPostgresStorage_StoreIteration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}
	record := testRecord()

	mock.ExpectExec("INSERT INTO iteration_records").
		WithArgs(
			record.ID,
			record.Index,
			record.StartedAt,
			"USDC",
			"WETH",
			"1000000",
			"executed",
			0.8,
			1.25,
			`{"tx1","tx2"}`,
			"",
			"",
			"",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreIteration(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_StoreIteration_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}
	record := testRecord()

	mock.ExpectExec("INSERT INTO iteration_records").
		WithArgs(
			record.ID, record.Index, record.StartedAt, "USDC", "WETH",
			"1000000", "executed", 0.8, 1.25, `{"tx1","tx2"}`, "", "", "",
		).
		WillReturnError(sqlmock.ErrCancelled)

	err = storage.StoreIteration(context.Background(), record)
	assert.Error(t, err)
}

func TestPostgresStorage_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}
	mock.ExpectClose()

	assert.NoError(t, storage.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_NoOpAndSkippedOutcomesStoreCleanly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}

	record := testRecord()
	record.PickedSize = nil
	record.Outcome = triarb.SkippedOutcome{Reason: triarb.SkipBelowUSDFloor}

	mock.ExpectExec("INSERT INTO iteration_records").
		WithArgs(
			record.ID, record.Index, record.StartedAt, "USDC", "WETH",
			"", "skipped", 0.0, 0.0, "{}", "BelowUsdFloor", "", "",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreIteration(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Interface(t *testing.T) {
	var _ Storage = NewConsoleStorage(zap.NewNop())

	db, _, _ := sqlmock.New()
	defer db.Close()
	var _ Storage = &PostgresStorage{db: db, logger: zap.NewNop()}
}
