package app

import (
	"context"
	"fmt"
	"sync"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
	"cryptoSimBot/internal/promotion"
)

// ModeController owns the process-wide run mode and running flag. Switching
// from simulation to live is refused until the promotion gate passes;
// switching back to simulation is always permitted (fail-safe direction).
type ModeController struct {
	logger ports.Logger

	mu       sync.Mutex
	mode     domain.RunMode
	running  bool
	onChange []func(domain.RunMode)
}

// NewModeController starts in SIMULATED mode with trading stopped.
func NewModeController(logger ports.Logger) *ModeController {
	return &ModeController{
		logger: logger,
		mode:   domain.ModeSimulated,
	}
}

// Mode returns the current run mode.
func (m *ModeController) Mode() domain.RunMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// IsRunning reports whether proposal evaluation is active.
func (m *ModeController) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// SetRunning toggles proposal evaluation. It never touches the run mode and
// never cancels already-scheduled position closes.
func (m *ModeController) SetRunning(running bool) {
	m.mu.Lock()
	m.running = running
	mode := m.mode
	m.mu.Unlock()

	m.logger.Info(context.Background(), "Trading running flag changed", map[string]interface{}{
		"running": running,
		"mode":    mode,
	})
}

// OnChange registers a listener invoked with the new mode after every
// successful switch. Listeners run outside the controller mutex.
func (m *ModeController) OnChange(fn func(domain.RunMode)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Switch toggles between SIMULATED and LIVE. Promoting to LIVE requires the
// promotion gate to pass for the supplied counters; otherwise ErrNotReady is
// returned and the mode is left unchanged. Returns the mode now in effect.
func (m *ModeController) Switch(perf domain.Performance, th promotion.Thresholds) (domain.RunMode, error) {
	m.mu.Lock()
	if m.mode == domain.ModeSimulated && !promotion.CanPromote(perf, th) {
		mode := m.mode
		m.mu.Unlock()
		return mode, fmt.Errorf("%w: closed=%d winRate=%.2f pnl=%.2f",
			ports.ErrNotReady, perf.TotalClosed, perf.WinRate(), perf.TotalPnL)
	}

	if m.mode == domain.ModeSimulated {
		m.mode = domain.ModeLive
	} else {
		m.mode = domain.ModeSimulated
	}
	mode := m.mode
	listeners := append([]func(domain.RunMode){}, m.onChange...)
	m.mu.Unlock()

	m.logger.Info(context.Background(), "Run mode switched", map[string]interface{}{"mode": mode})
	for _, fn := range listeners {
		fn(mode)
	}
	return mode, nil
}
