package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/config"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/report"
)

// Connect creates a connection pool for the results database.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the result tables when absent.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS replay_trades (
			trade_id    UUID PRIMARY KEY,
			run_id      TEXT NOT NULL,
			ts          BIGINT NOT NULL,
			strategy    TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			action      TEXT NOT NULL,
			price       INT NOT NULL,
			qty         INT NOT NULL,
			cost_cents  BIGINT NOT NULL,
			pnl_cents   BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS replay_equity (
			run_id          TEXT NOT NULL,
			day             DATE NOT NULL,
			strategy        TEXT NOT NULL,
			cash_cents      BIGINT NOT NULL,
			unsettled_cents BIGINT NOT NULL,
			equity_cents    BIGINT NOT NULL,
			PRIMARY KEY (run_id, day, strategy)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Store batch-writes replay results. It implements report.Recorder;
// decision intents are a file-interchange artifact and are not persisted.
type Store struct {
	db        *pgxpool.Pool
	runID     string
	logger    *slog.Logger
	batchSize int

	trades []*model.Trade
	equity []report.EquityRow

	inserts   int64
	conflicts int64
}

// New creates a Store flushing every batchSize rows.
func New(db *pgxpool.Pool, runID string, batchSize int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:        db,
		runID:     runID,
		logger:    logger,
		batchSize: batchSize,
	}
}

// RecordTrade queues one trade row.
func (s *Store) RecordTrade(t *model.Trade) error {
	s.trades = append(s.trades, t)
	if len(s.trades) >= s.batchSize {
		return s.flushTrades(context.Background())
	}
	return nil
}

// RecordEquity queues one daily equity row.
func (s *Store) RecordEquity(row report.EquityRow) error {
	s.equity = append(s.equity, row)
	if len(s.equity) >= s.batchSize {
		return s.flushEquity(context.Background())
	}
	return nil
}

// RecordIntent is a no-op; see type comment.
func (s *Store) RecordIntent(model.DecisionIntent) error { return nil }

// Close flushes pending rows. It does not close the pool; the caller
// owns it.
func (s *Store) Close() error {
	ctx := context.Background()
	if err := s.flushTrades(ctx); err != nil {
		return err
	}
	if err := s.flushEquity(ctx); err != nil {
		return err
	}
	s.logger.Info("results stored",
		"run_id", s.runID,
		"inserts", s.inserts,
		"conflicts", s.conflicts,
	)
	return nil
}

func (s *Store) flushTrades(ctx context.Context) error {
	if len(s.trades) == 0 {
		return nil
	}
	start := time.Now()

	batch := &pgx.Batch{}
	for _, t := range s.trades {
		batch.Queue(`
			INSERT INTO replay_trades (trade_id, run_id, ts, strategy, ticker, action, price, qty, cost_cents, pnl_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (trade_id) DO NOTHING
		`, t.ID, s.runID, t.Time.UnixMicro(), t.Strategy, t.Ticker, string(t.Action), t.PriceCents, t.Quantity, t.CostCents, t.PnLCents)
	}
	count := len(s.trades)
	s.trades = s.trades[:0]

	conflicts, err := s.send(ctx, batch, count)
	if err != nil {
		return fmt.Errorf("insert trades: %w", err)
	}
	s.logger.Debug("flushed trades",
		"count", count,
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return nil
}

func (s *Store) flushEquity(ctx context.Context) error {
	if len(s.equity) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range s.equity {
		batch.Queue(`
			INSERT INTO replay_equity (run_id, day, strategy, cash_cents, unsettled_cents, equity_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (run_id, day, strategy) DO NOTHING
		`, s.runID, row.Date.UTC().Format("2006-01-02"), row.Strategy, row.CashCents, row.UnsettledCents, row.EquityCents)
	}
	count := len(s.equity)
	s.equity = s.equity[:0]

	if _, err := s.send(ctx, batch, count); err != nil {
		return fmt.Errorf("insert equity: %w", err)
	}
	return nil
}

func (s *Store) send(ctx context.Context, batch *pgx.Batch, count int) (conflicts int, err error) {
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < count; i++ {
		ct, err := results.Exec()
		if err != nil {
			return conflicts, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	s.inserts += int64(count - conflicts)
	s.conflicts += int64(conflicts)
	return conflicts, nil
}
