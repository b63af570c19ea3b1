package ports

import (
	"context"

	"cryptoSimBot/internal/domain"
)

// DecisionSource supplies trade proposals on demand. The engine calls it
// once per symbol per scan tick; it never mutates engine state itself.
type DecisionSource interface {
	// Propose analyzes a single symbol and returns a trade proposal.
	// A proposal with ShouldTrade=false is a valid "do nothing" answer,
	// not an error.
	Propose(ctx context.Context, symbol string) (*domain.Proposal, error)
}
