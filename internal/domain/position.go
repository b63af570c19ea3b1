package domain

import "time"

// Position represents a single simulated trade from open to close.
type Position struct {
	ID         string         // Unique identifier (UUID), immutable after creation
	Symbol     string         // Trading pair (e.g., "BTC/USDT")
	Side       Side           // Trade direction (LONG or SHORT)
	Amount     float64        // Notional size in quote currency (USD-equivalent)
	EntryPrice float64        // Price at which the position was opened
	Confidence float64        // Decision confidence at open, in [0,1]
	OpenedAt   time.Time      // Timestamp when the position was opened
	Status     PositionStatus // Current status (open, closed)

	// Set exactly once when the position is closed; zero values while open.
	ExitPrice float64   // Price at which the position was closed
	PnL       float64   // Realized profit and loss (signed)
	ClosedAt  time.Time // Timestamp when the position was closed
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}
