package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal implements the ports.TradeJournal interface using SQLite. It is a
// passive observer of the ledger: entries are appended when positions close
// and never read back into trading state.
type Journal struct {
	db     *sql.DB
	logger ports.Logger
}

var _ ports.TradeJournal = (*Journal)(nil)

// Config holds configuration for the SQLite journal.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewJournal creates a new SQLite journal instance.
func NewJournal(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite journal")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/simbot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits from limiting connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, logger: cfg.Logger}
	if err := j.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize journal schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite journal ready", map[string]interface{}{"path": dbPath})

	return j, nil
}

// initializeSchema creates the trades table if it doesn't exist.
func (j *Journal) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sim_trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		amount REAL NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl REAL NOT NULL,
		confidence REAL NOT NULL,
		opened_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sim_trades_closed_at ON sim_trades (closed_at);
	CREATE INDEX IF NOT EXISTS idx_sim_trades_symbol ON sim_trades (symbol);
	`
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: schema initialization: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		j.logger.Info(context.Background(), "Closing SQLite journal")
		return j.db.Close()
	}
	return nil
}

// Record appends a closed position to the journal.
func (j *Journal) Record(ctx context.Context, pos *domain.Position) error {
	if pos == nil || pos.Status != domain.StatusClosed {
		return fmt.Errorf("%w: journal accepts closed positions only", ports.ErrQueryFailed)
	}
	const query = `
	INSERT INTO sim_trades (id, symbol, side, amount, entry_price, exit_price, pnl, confidence, opened_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		pos.ID, pos.Symbol, string(pos.Side), pos.Amount, pos.EntryPrice,
		pos.ExitPrice, pos.PnL, pos.Confidence, pos.OpenedAt, pos.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert trade %s: %v", ports.ErrQueryFailed, pos.ID, err)
	}
	return nil
}

// Recent retrieves the most recently closed trades, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*domain.Position, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
	SELECT id, symbol, side, amount, entry_price, exit_price, pnl, confidence, opened_at, closed_at
	FROM sim_trades ORDER BY closed_at DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []*domain.Position
	for rows.Next() {
		pos := &domain.Position{Status: domain.StatusClosed}
		var side string
		if err := rows.Scan(&pos.ID, &pos.Symbol, &side, &pos.Amount, &pos.EntryPrice,
			&pos.ExitPrice, &pos.PnL, &pos.Confidence, &pos.OpenedAt, &pos.ClosedAt); err != nil {
			return nil, fmt.Errorf("%w: scan trade row: %v", ports.ErrQueryFailed, err)
		}
		pos.Side = domain.Side(side)
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate trade rows: %v", ports.ErrQueryFailed, err)
	}
	return out, nil
}

// TotalProfit calculates the sum of PnL across all journaled trades.
func (j *Journal) TotalProfit(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(pnl), 0) FROM sim_trades`
	var total float64
	if err := j.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: sum pnl: %v", ports.ErrQueryFailed, err)
	}
	return total, nil
}
