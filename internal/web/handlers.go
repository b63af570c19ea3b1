package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cryptoSimBot/internal/app"
	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/ports"
)

// Handlers exposes the engine over HTTP. The journal is optional; trade
// history falls back to the in-memory closed history when it is absent.
type Handlers struct {
	engine  *app.Engine
	journal ports.TradeJournal // may be nil
	history func(limit int) []domain.Position
	logger  ports.Logger
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(engine *app.Engine, journal ports.TradeJournal, history func(limit int) []domain.Position, logger ports.Logger) *Handlers {
	return &Handlers{engine: engine, journal: journal, history: history, logger: logger}
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, envelope{Success: false, Error: err.Error()})
}

// Status handles GET /api/status.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.engine.Status())
}

// LearningStatus handles GET /api/learning-status.
func (h *Handlers) LearningStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.engine.LearningStatus())
}

// Positions handles GET /api/positions: all currently open positions.
func (h *Handlers) Positions(w http.ResponseWriter, r *http.Request) {
	_, open := h.engine.Snapshot()
	writeData(w, open)
}

// Trades handles GET /api/trades: most recently closed trades, newest first.
func (h *Handlers) Trades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	if h.journal != nil {
		trades, err := h.journal.Recent(r.Context(), limit)
		if err != nil {
			h.logger.Error(r.Context(), err, "Failed to read trade journal")
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeData(w, trades)
		return
	}
	writeData(w, h.history(limit))
}

// StartTrading handles POST /api/start-trading.
func (h *Handlers) StartTrading(w http.ResponseWriter, r *http.Request) {
	h.engine.SetRunning(true)
	writeData(w, map[string]interface{}{"running": true})
}

// StopTrading handles POST /api/stop-trading.
func (h *Handlers) StopTrading(w http.ResponseWriter, r *http.Request) {
	h.engine.SetRunning(false)
	writeData(w, map[string]interface{}{"running": false})
}

type marketOrderRequest struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
}

// MarketOrder handles POST /api/market-order: manual injection of a
// simulated trade at the current reference price.
func (h *Handlers) MarketOrder(w http.ResponseWriter, r *http.Request) {
	var req marketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var side domain.Side
	switch req.Side {
	case string(domain.Long), "buy", "BUY":
		side = domain.Long
	case string(domain.Short), "sell", "SELL":
		side = domain.Short
	default:
		writeError(w, http.StatusBadRequest, ports.ErrInvalidProposal)
		return
	}

	pos, err := h.engine.ManualOrder(r.Context(), req.Symbol, side, req.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ports.ErrInvalidProposal) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeData(w, pos)
}

type closePositionRequest struct {
	ExitPrice float64 `json:"exitPrice"`
}

// ClosePosition handles POST /api/positions/{id}/close: manual resolution of
// an open position.
func (h *Handlers) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pos, err := h.engine.Close(r.Context(), id, req.ExitPrice)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ports.ErrUnknownPosition) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeData(w, pos)
}

// ToggleMode handles POST /api/toggle-mode.
func (h *Handlers) ToggleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := h.engine.RequestModeSwitch()
	if err != nil {
		if errors.Is(err, ports.ErrNotReady) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, map[string]interface{}{"mode": mode})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"cryptoSimBot"}`))
}
