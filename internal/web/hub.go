package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cryptoSimBot/internal/domain"
	"cryptoSimBot/internal/metrics"
	"cryptoSimBot/internal/ports"
)

// Event is a JSON message pushed to WebSocket clients when the simulation
// state changes.
type Event struct {
	Type       string  `json:"type"` // position_opened, position_closed, mode_changed, ready_for_live
	PositionID string  `json:"position_id,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	Side       string  `json:"side,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	EntryPrice float64 `json:"entry_price,omitempty"`
	ExitPrice  float64 `json:"exit_price,omitempty"`
	PnL        float64 `json:"pnl,omitempty"`
	Mode       string  `json:"mode,omitempty"`
}

// PositionOpenedEvent builds the event broadcast when a position opens.
func PositionOpenedEvent(pos domain.Position) Event {
	return Event{
		Type:       "position_opened",
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Side:       string(pos.Side),
		Amount:     pos.Amount,
		EntryPrice: pos.EntryPrice,
	}
}

// PositionClosedEvent builds the event broadcast when a position closes.
func PositionClosedEvent(pos domain.Position) Event {
	return Event{
		Type:       "position_closed",
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Side:       string(pos.Side),
		Amount:     pos.Amount,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  pos.ExitPrice,
		PnL:        pos.PnL,
	}
}

// ModeChangedEvent builds the event broadcast when the run mode switches.
func ModeChangedEvent(mode domain.RunMode) Event {
	return Event{Type: "mode_changed", Mode: string(mode)}
}

// ReadyForLiveEvent builds the event broadcast when the promotion gate first passes.
func ReadyForLiveEvent() Event {
	return Event{Type: "ready_for_live"}
}

// Hub manages WebSocket connections and broadcasts simulation events to all
// connected clients.
type Hub struct {
	logger     ports.Logger
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub(logger ports.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			h.logger.Debug(context.Background(), "WebSocket client connected", map[string]interface{}{"total": total})

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
		}
	}
}

// Broadcast sends an event to all connected clients. Drops the event if the
// buffer is full so trading is never blocked by slow consumers.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Trusted deployment behind a reverse proxy.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	h.register <- conn

	// Read pump: keep the connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep the connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
