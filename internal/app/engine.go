package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptoSimBot/config"
	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ledger"
	"cryptoSimBot/internal/ports"
	"cryptoSimBot/internal/promotion"
)

// BlockedCounter reports how many symbols the scam filter has suppressed.
// Satisfied by the scam detector; optional.
type BlockedCounter interface {
	BlockedCount() int
}

// Engine orchestrates the simulation: it drives the scan loop that turns
// decision-source proposals into simulated positions, re-evaluates the
// promotion gate in the background, and fronts the ledger and mode
// controller for callers such as the HTTP layer.
type Engine struct {
	cfg        *config.Config
	logger     ports.Logger
	source     ports.DecisionSource
	ledger     *ledger.Ledger
	mode       *ModeController
	executor   ports.LiveExecutor // nil unless live execution is configured
	scamCount  BlockedCounter     // nil when no scam filter is wired
	thresholds promotion.Thresholds

	readyOnce sync.Once
	mu        sync.Mutex
	onReady   []func()
}

// NewEngine creates the engine. The live executor and blocked counter are
// optional; everything else is required.
func NewEngine(
	cfg *config.Config,
	logger ports.Logger,
	source ports.DecisionSource,
	led *ledger.Ledger,
	mode *ModeController,
	executor ports.LiveExecutor,
	scamCount BlockedCounter,
) (*Engine, error) {
	if cfg == nil || logger == nil || source == nil || led == nil || mode == nil {
		return nil, fmt.Errorf("missing required dependencies for Engine")
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("%w: ScanInterval must be positive", ports.ErrConfigurationError)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ports.ErrConfigurationError)
	}
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		ledger:    led,
		mode:      mode,
		executor:  executor,
		scamCount: scamCount,
		thresholds: promotion.Thresholds{
			MinClosed:  cfg.PromoteMinClosed,
			MinWinRate: cfg.PromoteMinWinRate,
			MinPnL:     cfg.PromoteMinPnL,
		},
	}, nil
}

// Run drives the scan and promotion-watch tickers until the context is
// canceled. Scheduled position closes keep firing independently of Run.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info(ctx, "Engine started", map[string]interface{}{
		"symbols":      e.cfg.Symbols,
		"scanInterval": e.cfg.ScanInterval.String(),
		"mode":         e.mode.Mode(),
	})

	scanTicker := time.NewTicker(e.cfg.ScanInterval)
	defer scanTicker.Stop()
	promoTicker := time.NewTicker(e.cfg.PromotionCheckInterval)
	defer promoTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, "Engine stopped")
			return ctx.Err()
		case <-scanTicker.C:
			e.scan(ctx)
		case <-promoTicker.C:
			e.checkPromotion(ctx)
		}
	}
}

// scan consults the decision source once per symbol and acts on favorable
// proposals. A stopped engine skips evaluation entirely.
func (e *Engine) scan(ctx context.Context) {
	if !e.mode.IsRunning() {
		return
	}

	for _, symbol := range e.cfg.Symbols {
		proposal, err := e.source.Propose(ctx, symbol)
		if err != nil {
			e.logger.Error(ctx, err, "Decision source failed", map[string]interface{}{"symbol": symbol})
			continue
		}
		if !proposal.ShouldTrade || proposal.Confidence <= e.cfg.MinConfidence {
			continue
		}

		if e.mode.Mode() == domain.ModeLive {
			e.executeLive(ctx, proposal)
			continue
		}
		if _, err := e.ledger.Open(ctx, proposal); err != nil {
			e.logger.Error(ctx, err, "Failed to open simulated position", map[string]interface{}{"symbol": symbol})
		}
	}
}

func (e *Engine) executeLive(ctx context.Context, p *domain.Proposal) {
	if e.executor == nil {
		e.logger.Warn(ctx, "Live mode active but no executor configured; order skipped", map[string]interface{}{
			"symbol": p.Symbol,
			"side":   p.Side,
			"amount": p.Amount,
		})
		return
	}
	order, err := e.executor.PlaceMarketOrder(ctx, p.Symbol, p.Side, p.Amount)
	if err != nil {
		e.logger.Error(ctx, err, "Live order failed", map[string]interface{}{"symbol": p.Symbol})
		return
	}
	e.logger.Info(ctx, "Live order placed", map[string]interface{}{
		"symbol":   p.Symbol,
		"side":     order.Side,
		"orderID":  order.OrderID,
		"avgPrice": order.AvgPrice,
	})
}

// checkPromotion fires the ready-for-live listeners the first time the gate
// passes. The gate itself stays advisory: the actual switch still goes
// through RequestModeSwitch.
func (e *Engine) checkPromotion(ctx context.Context) {
	perf, _ := e.ledger.Snapshot()
	if !promotion.CanPromote(perf, e.thresholds) {
		return
	}
	e.readyOnce.Do(func() {
		e.logger.Info(ctx, "Promotion criteria met: ready for live trading", map[string]interface{}{
			"closed":  perf.TotalClosed,
			"winRate": perf.WinRate(),
			"pnl":     perf.TotalPnL,
		})
		e.mu.Lock()
		listeners := append([]func(){}, e.onReady...)
		e.mu.Unlock()
		for _, fn := range listeners {
			fn()
		}
	})
}

// OnReadyForLive registers a listener fired once, the first time the
// promotion gate passes.
func (e *Engine) OnReadyForLive(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReady = append(e.onReady, fn)
}

// OnModeChange registers a listener on the underlying mode controller.
func (e *Engine) OnModeChange(fn func(domain.RunMode)) {
	e.mode.OnChange(fn)
}

// SetRunning starts or stops proposal evaluation.
func (e *Engine) SetRunning(running bool) {
	e.mode.SetRunning(running)
}

// Open injects a position directly into the ledger, bypassing the decision
// source's trade gate. Exposed for manual orders and tests.
func (e *Engine) Open(ctx context.Context, p *domain.Proposal) (*domain.Position, error) {
	return e.ledger.Open(ctx, p)
}

// Close resolves an open position at the given exit price.
func (e *Engine) Close(ctx context.Context, id string, exitPrice float64) (*domain.Position, error) {
	return e.ledger.Close(ctx, id, exitPrice)
}

// ManualOrder opens a simulated position for the given symbol using the
// decision source's current reference price but the caller's side and
// amount. Mirrors the manual market-order surface of the HTTP API.
func (e *Engine) ManualOrder(ctx context.Context, symbol string, side domain.Side, amount float64) (*domain.Position, error) {
	proposal, err := e.source.Propose(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to price manual order for %s: %w", symbol, err)
	}
	proposal.Side = side
	proposal.Amount = amount
	return e.ledger.Open(ctx, proposal)
}

// Snapshot returns the counters and open positions at one instant.
func (e *Engine) Snapshot() (domain.Performance, []domain.Position) {
	return e.ledger.Snapshot()
}

// CanPromote evaluates the promotion gate against the current counters.
func (e *Engine) CanPromote() bool {
	perf, _ := e.ledger.Snapshot()
	return promotion.CanPromote(perf, e.thresholds)
}

// RequestModeSwitch toggles the run mode, refusing promotion to LIVE while
// the promotion gate fails. Returns the mode now in effect.
func (e *Engine) RequestModeSwitch() (domain.RunMode, error) {
	perf, _ := e.ledger.Snapshot()
	return e.mode.Switch(perf, e.thresholds)
}

// Mode returns the current run mode.
func (e *Engine) Mode() domain.RunMode {
	return e.mode.Mode()
}

// IsRunning reports whether proposal evaluation is active.
func (e *Engine) IsRunning() bool {
	return e.mode.IsRunning()
}

// Status summarizes the bot for status reporting.
type Status struct {
	Running          bool           `json:"running"`
	Mode             domain.RunMode `json:"mode"`
	Balance          float64        `json:"balance"`
	TotalTrades      int            `json:"totalTrades"`
	ClosedTrades     int            `json:"closedTrades"`
	SuccessRate      float64        `json:"successRate"`
	TotalProfit      float64        `json:"totalProfit"`
	Confidence       float64        `json:"confidence"`
	LearningProgress float64        `json:"learningProgress"`
	ReadyForLive     bool           `json:"readyForLive"`
	OpenPositions    int            `json:"openPositions"`
}

// Status reports the aggregate state in one consistent snapshot. The balance
// is the virtual starting balance plus cumulative realized PnL; success rate
// and confidence are percentages.
func (e *Engine) Status() Status {
	perf, open := e.ledger.Snapshot()
	return Status{
		Running:          e.mode.IsRunning(),
		Mode:             e.mode.Mode(),
		Balance:          e.cfg.InitialBalance + perf.TotalPnL,
		TotalTrades:      perf.TotalOpened,
		ClosedTrades:     perf.TotalClosed,
		SuccessRate:      perf.WinRate() * 100,
		TotalProfit:      perf.TotalPnL,
		Confidence:       perf.ConfidenceLevel * 100,
		LearningProgress: perf.LearningProgress,
		ReadyForLive:     promotion.CanPromote(perf, e.thresholds),
		OpenPositions:    len(open),
	}
}

// LearningStatus summarizes the learning/simulation progress.
type LearningStatus struct {
	TotalTrades      int     `json:"totalPaperTrades"`
	SuccessRate      float64 `json:"paperSuccessRate"`
	Confidence       float64 `json:"aiConfidence"`
	LearningProgress float64 `json:"learningProgress"`
	ReadyForLive     bool    `json:"readyForLive"`
	ScamBlocked      int     `json:"scamTokensBlocked"`
}

// LearningStatus reports the simulation learning counters.
func (e *Engine) LearningStatus() LearningStatus {
	perf, _ := e.ledger.Snapshot()
	blocked := 0
	if e.scamCount != nil {
		blocked = e.scamCount.BlockedCount()
	}
	return LearningStatus{
		TotalTrades:      perf.TotalClosed,
		SuccessRate:      perf.WinRate(),
		Confidence:       perf.ConfidenceLevel,
		LearningProgress: perf.LearningProgress,
		ReadyForLive:     promotion.CanPromote(perf, e.thresholds),
		ScamBlocked:      blocked,
	}
}
