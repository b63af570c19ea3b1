package domain

// Performance holds the aggregate counters accumulated across simulated
// trades. It is owned and mutated exclusively by the ledger; everyone else
// works on copies.
type Performance struct {
	TotalOpened int     // Positions opened since startup
	TotalClosed int     // Positions closed since startup
	Wins        int     // Closed positions with PnL > 0
	TotalPnL    float64 // Cumulative realized PnL

	// ConfidenceLevel is a familiarity score bumped by a fixed increment on
	// every close, capped at 0.95. It is a deliberate stub, not a learning
	// signal; the ledger applies the update rule.
	ConfidenceLevel float64

	// LearningProgress is a derived score in [0,100] combining trade count,
	// win rate and confidence.
	LearningProgress float64
}

// WinRate returns the fraction of closed trades that were profitable,
// or 0 when nothing has closed yet.
func (p Performance) WinRate() float64 {
	if p.TotalClosed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.TotalClosed)
}
