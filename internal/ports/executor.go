package ports

import (
	"context"
	"time"

	"cryptoSimBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing a live order.
type OrderResponse struct {
	OrderID   int64     // Exchange's order ID
	Symbol    string    // Symbol for the order
	AvgPrice  float64   // Average filled price
	Quantity  float64   // Quantity filled
	Status    string    // Order status (e.g., NEW, FILLED)
	Side      string    // Order side (BUY, SELL)
	Timestamp time.Time // Time the order response was generated
}

// LiveExecutor routes orders to a real exchange once the bot has been
// promoted out of simulation. Implementations wrap exchange SDK errors
// with the standard ports errors.
type LiveExecutor interface {
	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error

	// PlaceMarketOrder places a market order for the given notional amount
	// in quote currency.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quoteAmount float64) (*OrderResponse, error)
}
