package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
)

const (
	// Learning progress saturates at 100 closed trades and a 75% win rate.
	// These feed the derived score only; the promotion thresholds are
	// configured separately.
	progressTradeTarget   = 100.0
	progressWinRateTarget = 0.75
)

// CloseScheduler arranges a future close for a freshly opened position.
// The ledger hands it a value copy; the scheduler never touches ledger state
// directly.
type CloseScheduler interface {
	ScheduleClose(pos domain.Position)
}

// Config holds configuration for the ledger.
type Config struct {
	ConfidenceStep float64 // Increment applied to the confidence level per close
	ConfidenceCap  float64 // Upper bound for the confidence level
	InitConfidence float64 // Starting confidence level
	Logger         ports.Logger
}

// Ledger is the single authority over simulated positions and the
// performance counters derived from them. One mutex serializes Open, Close
// and Snapshot so that readers never observe a partially applied close.
type Ledger struct {
	cfg    Config
	logger ports.Logger

	mu        sync.Mutex
	open      map[string]*domain.Position
	closed    []*domain.Position // ordered by ClosedAt (appends happen under the mutex)
	perf      domain.Performance
	scheduler CloseScheduler
	onOpened  []func(domain.Position)
	onClosed  []func(domain.Position)
}

// New creates a ledger with zeroed counters.
func New(cfg Config) (*Ledger, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for ledger")
	}
	if cfg.ConfidenceCap <= 0 || cfg.ConfidenceCap > 1 {
		return nil, fmt.Errorf("%w: ConfidenceCap must be in (0,1]", ports.ErrConfigurationError)
	}
	if cfg.ConfidenceStep < 0 {
		return nil, fmt.Errorf("%w: ConfidenceStep cannot be negative", ports.ErrConfigurationError)
	}
	if cfg.InitConfidence < 0 || cfg.InitConfidence > cfg.ConfidenceCap {
		return nil, fmt.Errorf("%w: InitConfidence must be between 0 and ConfidenceCap", ports.ErrConfigurationError)
	}
	return &Ledger{
		cfg:    cfg,
		logger: cfg.Logger,
		open:   make(map[string]*domain.Position),
		perf:   domain.Performance{ConfidenceLevel: cfg.InitConfidence},
	}, nil
}

// AttachScheduler wires the outcome scheduler that will close positions
// opened from now on. Must be called before the first Open; a nil scheduler
// leaves positions open until closed manually (useful in tests).
func (l *Ledger) AttachScheduler(s CloseScheduler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scheduler = s
}

// OnOpened registers a listener invoked after each successful open.
// Listeners run outside the ledger mutex and receive a value copy.
func (l *Ledger) OnOpened(fn func(domain.Position)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onOpened = append(l.onOpened, fn)
}

// OnClosed registers a listener invoked after each successful close.
func (l *Ledger) OnClosed(fn func(domain.Position)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onClosed = append(l.onClosed, fn)
}

// Open validates the proposal, creates a new open position and schedules its
// future close. Returns a copy of the created position including its ID.
func (l *Ledger) Open(ctx context.Context, p *domain.Proposal) (*domain.Position, error) {
	if p == nil || p.Amount <= 0 || p.Price <= 0 {
		return nil, fmt.Errorf("%w: %+v", ports.ErrInvalidProposal, p)
	}
	side := p.Side
	if side != domain.Long && side != domain.Short {
		return nil, fmt.Errorf("%w: unknown side %q", ports.ErrInvalidProposal, p.Side)
	}

	pos := &domain.Position{
		ID:         uuid.NewString(),
		Symbol:     p.Symbol,
		Side:       side,
		Amount:     p.Amount,
		EntryPrice: p.Price,
		Confidence: p.Confidence,
		OpenedAt:   time.Now().UTC(),
		Status:     domain.StatusOpen,
	}

	l.mu.Lock()
	l.open[pos.ID] = pos
	l.perf.TotalOpened++
	snapshot := *pos
	listeners := append([]func(domain.Position){}, l.onOpened...)
	scheduler := l.scheduler
	l.mu.Unlock()

	l.logger.Info(ctx, "Position opened", map[string]interface{}{
		"positionID": snapshot.ID,
		"symbol":     snapshot.Symbol,
		"side":       snapshot.Side,
		"amount":     snapshot.Amount,
		"entryPrice": snapshot.EntryPrice,
		"confidence": snapshot.Confidence,
	})

	for _, fn := range listeners {
		fn(snapshot)
	}
	if scheduler != nil {
		scheduler.ScheduleClose(snapshot)
	}

	result := snapshot
	return &result, nil
}

// Close resolves an open position at the given exit price, moves it to the
// closed history and updates the performance counters. A second close on the
// same identifier fails with ErrUnknownPosition; it never double-counts.
func (l *Ledger) Close(ctx context.Context, id string, exitPrice float64) (*domain.Position, error) {
	l.mu.Lock()
	pos, ok := l.open[id]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: id=%s", ports.ErrUnknownPosition, id)
	}

	qty := pos.Amount / pos.EntryPrice
	var pnl float64
	if pos.Side == domain.Long {
		pnl = (exitPrice - pos.EntryPrice) * qty
	} else {
		pnl = (pos.EntryPrice - exitPrice) * qty
	}

	pos.ExitPrice = exitPrice
	pos.PnL = pnl
	pos.ClosedAt = time.Now().UTC()
	pos.Status = domain.StatusClosed

	delete(l.open, id)
	l.closed = append(l.closed, pos)

	l.perf.TotalClosed++
	if pnl > 0 {
		l.perf.Wins++
	}
	l.perf.TotalPnL += pnl
	l.perf.ConfidenceLevel = math.Min(l.cfg.ConfidenceCap, l.perf.ConfidenceLevel+l.cfg.ConfidenceStep)
	l.perf.LearningProgress = learningProgress(l.perf)

	snapshot := *pos
	listeners := append([]func(domain.Position){}, l.onClosed...)
	l.mu.Unlock()

	l.logger.Info(ctx, "Position closed", map[string]interface{}{
		"positionID": snapshot.ID,
		"symbol":     snapshot.Symbol,
		"exitPrice":  snapshot.ExitPrice,
		"pnl":        snapshot.PnL,
	})

	for _, fn := range listeners {
		fn(snapshot)
	}

	result := snapshot
	return &result, nil
}

// Snapshot returns a copy of the performance counters together with copies
// of all currently open positions, taken at a single consistent instant.
// Open positions are ordered by open time for stable output.
func (l *Ledger) Snapshot() (domain.Performance, []domain.Position) {
	l.mu.Lock()
	perf := l.perf
	positions := make([]domain.Position, 0, len(l.open))
	for _, pos := range l.open {
		positions = append(positions, *pos)
	}
	l.mu.Unlock()

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].OpenedAt.Equal(positions[j].OpenedAt) {
			return positions[i].ID < positions[j].ID
		}
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})
	return perf, positions
}

// RecentClosed returns copies of the most recently closed positions, newest
// first, up to the given limit. A non-positive limit returns everything.
func (l *Ledger) RecentClosed(limit int) []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.closed)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Position, 0, n)
	for i := len(l.closed) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *l.closed[i])
	}
	return out
}

// learningProgress derives the [0,100] progress score from the counters:
// the average of trade-count progress, win-rate progress and the confidence
// level, scaled to percent and clamped.
func learningProgress(perf domain.Performance) float64 {
	var successFactor float64
	if perf.TotalClosed > 0 {
		successFactor = perf.WinRate() / progressWinRateTarget
	}
	tradesFactor := float64(perf.TotalClosed) / progressTradeTarget
	avg := (tradesFactor + successFactor + perf.ConfidenceLevel) / 3
	return math.Min(100, avg*100)
}
