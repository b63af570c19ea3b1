// Package marketmock implements ports.DecisionSource with a synthetic
// market analyzer: randomized prices around fixed base levels and a
// randomized sentiment/technical blend. It stands in for real market-data
// ingestion, which this bot deliberately does not do.
package marketmock

import (
	"context"
	"math/rand"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
	"cryptoSimBot/internal/scam"
)

// Base reference prices per supported pair. Unknown pairs fall back to 100.
var basePrices = map[string]float64{
	"BTC/USDT": 45000,
	"ETH/USDT": 2800,
	"SOL/USDT": 110,
}

const defaultBasePrice = 100

// Config holds configuration for the mock analyzer.
type Config struct {
	MinConfidence float64 // Confidence floor below which ShouldTrade is never set
	Logger        ports.Logger

	// RandFloat returns a uniform value in [0,1). Defaults to math/rand.
	RandFloat func() float64
}

// Source produces synthetic trade proposals. Safe for concurrent use as long
// as the injected RandFloat is (math/rand's default is).
type Source struct {
	cfg       Config
	logger    ports.Logger
	randFloat func() float64
	detector  *scam.Detector // optional
}

// New creates a mock decision source. The detector may be nil to skip scam
// screening.
func New(cfg Config, detector *scam.Detector) *Source {
	randFloat := cfg.RandFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return &Source{
		cfg:       cfg,
		logger:    cfg.Logger,
		randFloat: randFloat,
		detector:  detector,
	}
}

// Propose analyzes one symbol and returns a proposal. The trade gate is
// deliberately rare: confidence must clear the floor and a 1-in-10 draw must
// hit, so most ticks produce ShouldTrade=false.
func (s *Source) Propose(ctx context.Context, symbol string) (*domain.Proposal, error) {
	price := s.mockPrice(symbol)

	sentiment := s.randFloat()
	technical := s.randFloat()
	confidence := (sentiment + technical) / 2

	shouldTrade := confidence > s.cfg.MinConfidence && s.randFloat() > 0.9

	if shouldTrade && s.detector != nil {
		if res := s.detector.Analyze(ctx, symbol); res.IsScam {
			s.logger.Info(ctx, "Proposal suppressed by scam filter", map[string]interface{}{"symbol": symbol})
			shouldTrade = false
		}
	}

	side := domain.Long
	if s.randFloat() > 0.5 {
		side = domain.Short
	}

	return &domain.Proposal{
		Symbol:      symbol,
		Price:       price,
		Confidence:  confidence,
		ShouldTrade: shouldTrade,
		Side:        side,
		Amount:      100 + s.randFloat()*400, // $100–500 notional
	}, nil
}

// mockPrice returns the base price for the symbol perturbed by ±5%.
func (s *Source) mockPrice(symbol string) float64 {
	base, ok := basePrices[symbol]
	if !ok {
		base = defaultBasePrice
	}
	return base * (0.95 + s.randFloat()*0.1)
}
