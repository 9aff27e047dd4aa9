// Package dashboard serves the HTTP API and websocket event stream consumed
// by external visualization clients.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"simtrade/internal/book"
	"simtrade/internal/engine"
	"simtrade/internal/store"
)

const defaultOrderLimit = 20

// Server exposes read-only views of the trading system over HTTP.
type Server struct {
	engine  *engine.Engine
	history store.OrderHistory // may be nil
	book    *book.Book
	hub     *Hub
	log     *slog.Logger
}

// NewServer creates a dashboard server over the given components.
func NewServer(eng *engine.Engine, history store.OrderHistory, b *book.Book, hub *Hub, log *slog.Logger) *Server {
	return &Server{
		engine:  eng,
		history: history,
		book:    b,
		hub:     hub,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/pnl", s.handlePnL)
	mux.HandleFunc("GET /api/orders", s.handleOrders)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/books", s.handleBooks)
	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.Positions())
}

func (s *Server) handlePnL(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.PnL())
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "order history not configured")
		return
	}
	limit := defaultOrderLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	orders, err := s.history.RecentOrders(r.Context(), limit)
	if err != nil {
		s.log.Error("reading order history", "error", err)
		writeError(w, http.StatusInternalServerError, "reading order history")
		return
	}
	writeJSON(w, orders)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.Stats().Snapshot())
}

func (s *Server) handleBooks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.book.All())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
