package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
)

// Closer is the serialization point the scheduler resolves positions
// through. Implemented by the ledger.
type Closer interface {
	Close(ctx context.Context, id string, exitPrice float64) (*domain.Position, error)
}

// Config holds configuration for the outcome scheduler.
type Config struct {
	DelayMin  time.Duration // Lower bound of the randomized close delay
	DelayMax  time.Duration // Upper bound of the randomized close delay
	ExitDrift float64       // Max relative exit-price perturbation (e.g., 0.02 for ±2%)
	Logger    ports.Logger

	// RandFloat returns a uniform value in [0,1). Defaults to math/rand;
	// injectable for deterministic tests.
	RandFloat func() float64
}

// Scheduler guarantees that every opened position is closed exactly once,
// after a randomized delay, without the caller polling. Scheduled closes are
// fire-and-forget: stopping the trading loop never cancels them.
type Scheduler struct {
	cfg       Config
	target    Closer
	logger    ports.Logger
	randFloat func() float64

	mu      sync.Mutex
	pending int
}

// New creates an outcome scheduler resolving positions through the target.
func New(cfg Config, target Closer) (*Scheduler, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for scheduler")
	}
	if target == nil {
		return nil, fmt.Errorf("close target is required for scheduler")
	}
	if cfg.DelayMin < 0 || cfg.DelayMax < cfg.DelayMin {
		return nil, fmt.Errorf("%w: delay window [%s, %s] invalid", ports.ErrConfigurationError, cfg.DelayMin, cfg.DelayMax)
	}
	if cfg.ExitDrift < 0 || cfg.ExitDrift >= 1 {
		return nil, fmt.Errorf("%w: ExitDrift must be in [0,1)", ports.ErrConfigurationError)
	}
	randFloat := cfg.RandFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return &Scheduler{
		cfg:       cfg,
		target:    target,
		logger:    cfg.Logger,
		randFloat: randFloat,
	}, nil
}

// ScheduleClose arranges a single future close for the given position: a
// delay drawn uniformly from the configured window, then a synthetic exit
// price derived by perturbing the entry price within ±ExitDrift.
func (s *Scheduler) ScheduleClose(pos domain.Position) {
	delay := s.cfg.DelayMin
	if window := s.cfg.DelayMax - s.cfg.DelayMin; window > 0 {
		delay += time.Duration(s.randFloat() * float64(window))
	}
	// Draw the exit factor now so the timer callback does nothing but close.
	exitPrice := pos.EntryPrice * (1 + (s.randFloat()*2-1)*s.cfg.ExitDrift)

	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	s.logger.Debug(context.Background(), "Close scheduled", map[string]interface{}{
		"positionID": pos.ID,
		"symbol":     pos.Symbol,
		"delay":      delay.String(),
		"exitPrice":  exitPrice,
	})

	time.AfterFunc(delay, func() {
		s.resolve(pos, exitPrice)
	})
}

func (s *Scheduler) resolve(pos domain.Position, exitPrice float64) {
	ctx := context.Background()

	defer func() {
		s.mu.Lock()
		s.pending--
		s.mu.Unlock()
	}()

	if _, err := s.target.Close(ctx, pos.ID, exitPrice); err != nil {
		// The position was already closed when the timer fired, e.g. by a
		// manual close through the API. Log and drop.
		if errors.Is(err, ports.ErrUnknownPosition) {
			s.logger.Warn(ctx, "Scheduled close dropped: position no longer open", map[string]interface{}{
				"positionID": pos.ID,
				"symbol":     pos.Symbol,
			})
			return
		}
		s.logger.Error(ctx, err, "Scheduled close failed", map[string]interface{}{
			"positionID": pos.ID,
			"symbol":     pos.Symbol,
		})
	}
}

// Pending reports the number of closes that have been scheduled but not yet
// resolved.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
