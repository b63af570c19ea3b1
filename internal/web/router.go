package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cryptoSimBot/internal/metrics"
)

// NewRouter assembles the HTTP API. The hub may be nil to disable the
// WebSocket endpoint.
func NewRouter(h *Handlers, hub *Hub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if hub != nil {
			r.Get("/ws", hub.HandleWS)
		}

		r.Get("/status", h.Status)
		r.Get("/learning-status", h.LearningStatus)
		r.Get("/positions", h.Positions)
		r.Get("/trades", h.Trades)

		r.Post("/start-trading", h.StartTrading)
		r.Post("/stop-trading", h.StopTrading)
		r.Post("/market-order", h.MarketOrder)
		r.Post("/positions/{id}/close", h.ClosePosition)
		r.Post("/toggle-mode", h.ToggleMode)
	})

	return r
}

// NewServer wraps the router in an http.Server with sane timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
