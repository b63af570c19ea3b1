// Package promotion decides when the bot has accumulated enough favorable
// simulated evidence to be trusted with live execution.
package promotion

import "cryptoSimBot/internal/domain"

// Thresholds are the promotion criteria. All three must hold simultaneously.
type Thresholds struct {
	MinClosed  int     // Minimum number of closed simulated trades
	MinWinRate float64 // Minimum fraction of winning closes
	MinPnL     float64 // Cumulative realized PnL that must be exceeded
}

// DefaultThresholds returns the stock promotion criteria: at least 50
// closed trades at a 75% win rate with more than 500 profit.
func DefaultThresholds() Thresholds {
	return Thresholds{MinClosed: 50, MinWinRate: 0.75, MinPnL: 500}
}

// CanPromote reports whether the accumulated counters clear the thresholds.
// Pure function; safe to call concurrently from any number of readers.
func CanPromote(perf domain.Performance, th Thresholds) bool {
	if perf.TotalClosed < th.MinClosed {
		return false
	}
	if perf.WinRate() < th.MinWinRate {
		return false
	}
	return perf.TotalPnL > th.MinPnL
}
