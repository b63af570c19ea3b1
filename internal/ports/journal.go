package ports

import (
	"context"

	"cryptoSimBot/internal/domain"
)

// TradeJournal persists closed simulated trades for later inspection.
// It is an optional observer of the ledger: the core never depends on a
// journal being present, and journal failures never affect trading state.
type TradeJournal interface {
	// Record appends a closed position to the journal.
	Record(ctx context.Context, pos *domain.Position) error
	// Recent retrieves the most recently closed trades, up to a limit,
	// newest first.
	Recent(ctx context.Context, limit int) ([]*domain.Position, error)
	// TotalProfit calculates the sum of PnL across all journaled trades.
	TotalProfit(ctx context.Context) (float64, error)
	// Close releases the underlying storage.
	Close() error
}
