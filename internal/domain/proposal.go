package domain

// Proposal is a trade suggestion produced by a decision source for one symbol.
// The engine opens a simulated position when ShouldTrade is set and
// Confidence clears the configured minimum.
type Proposal struct {
	Symbol      string  // Trading pair the proposal applies to
	Price       float64 // Reference price at decision time
	Confidence  float64 // Decision confidence, in [0,1]
	ShouldTrade bool    // Whether the source recommends acting at all
	Side        Side    // Suggested direction
	Amount      float64 // Suggested notional size in quote currency
}
