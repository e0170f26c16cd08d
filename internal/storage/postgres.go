package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreIteration stores a search-loop iteration record in PostgreSQL.
func (p *PostgresStorage) StoreIteration(ctx context.Context, record triarb.IterationRecord) error {
	fields := extractOutcome(record.Outcome)

	var pickedSize string
	if record.PickedSize != nil {
		pickedSize = record.PickedSize.String()
	}

	query := `
		INSERT INTO iteration_records (
			id, index, started_at, anchor_symbol, intermediate_symbol,
			picked_size_raw, outcome_kind, profit_pct, profit_usd,
			tx_ids, skip_reason, error_kind, error_message
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		record.ID,
		record.Index,
		record.StartedAt,
		record.Route.A.Symbol,
		record.Route.B.Symbol,
		pickedSize,
		fields.kind,
		fields.profitPct,
		fields.profitUSD,
		pqStringArray(fields.txIDs),
		fields.reason,
		fields.errKind,
		fields.message,
	)
	if err != nil {
		return fmt.Errorf("insert iteration record: %w", err)
	}

	p.logger.Debug("iteration-stored",
		zap.String("iteration-id", record.ID),
		zap.Uint64("index", record.Index),
		zap.String("outcome", fields.kind))

	return nil
}

// pqStringArray renders a string slice as a Postgres text-array
// literal. A minimal hand-rolled encoder keeps this package from
// pulling in pq's array helper type for a one-field use site.
func pqStringArray(values []string) string {
	if len(values) == 0 {
		return "{}"
	}
	out := "{"
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += `"` + v + `"`
	}
	return out + "}"
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
