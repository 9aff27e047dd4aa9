// Package feed supplies the market data edge of the system: a websocket
// server that generates simulated ticks, and a client that consumes them.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"simtrade/internal/config"
	"simtrade/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Generator produces simulated market ticks, a random walk with a floor,
// and broadcasts them to all connected websocket clients.
type Generator struct {
	cfg config.FeedConfig
	log *slog.Logger

	mu      sync.Mutex
	prices  map[string]float64
	clients map[*websocket.Conn]bool
	rng     *rand.Rand
}

// NewGenerator creates a Generator with starting prices drawn uniformly from
// [100, 300) per symbol.
func NewGenerator(cfg config.FeedConfig, seed int64, log *slog.Logger) *Generator {
	rng := rand.New(rand.NewSource(seed))
	prices := make(map[string]float64, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		prices[s] = 100 + rng.Float64()*200
	}
	return &Generator{
		cfg:     cfg,
		log:     log,
		prices:  prices,
		clients: make(map[*websocket.Conn]bool),
		rng:     rng,
	}
}

// GenerateTick advances the symbol's price by a uniform step in [-0.5, 0.5]
// (floored at 1.0) and quotes a bid/ask around it.
func (g *Generator) GenerateTick(symbol string) domain.Tick {
	g.mu.Lock()
	defer g.mu.Unlock()

	price := g.prices[symbol] + (g.rng.Float64() - 0.5)
	if price < 1.0 {
		price = 1.0
	}
	g.prices[symbol] = price

	bid := price - (0.01 + g.rng.Float64()*0.04)
	ask := bid + (0.01 + g.rng.Float64()*0.09)

	return domain.Tick{
		Symbol:    symbol,
		Bid:       round2(bid),
		Ask:       round2(ask),
		BidSize:   int64(100 + g.rng.Intn(901)),
		AskSize:   int64(100 + g.rng.Intn(901)),
		Timestamp: domain.Now(),
	}
}

// Run serves the websocket endpoint and broadcasts one tick for a randomly
// chosen symbol per interval until the context is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleClient)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", g.cfg.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		g.log.Info("feed generator listening", "addr", srv.Addr, "symbols", g.cfg.Symbols)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(time.Duration(g.cfg.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		case <-ticker.C:
			g.mu.Lock()
			symbol := g.cfg.Symbols[g.rng.Intn(len(g.cfg.Symbols))]
			g.mu.Unlock()
			g.broadcast(g.GenerateTick(symbol))
		}
	}
}

func (g *Generator) handleClient(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	g.mu.Lock()
	g.clients[conn] = true
	total := len(g.clients)
	g.mu.Unlock()
	g.log.Info("feed client connected", "total", total)

	// Read pump: the feed never expects client messages, but control frames
	// must be processed so a closed client is dropped promptly.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				g.dropClient(conn)
				return
			}
		}
	}()
}

func (g *Generator) dropClient(conn *websocket.Conn) {
	conn.Close()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients[conn] {
		delete(g.clients, conn)
		g.log.Info("feed client disconnected", "total", len(g.clients))
	}
}

// broadcast sends the tick to all connected clients, dropping any whose
// connection has failed.
func (g *Generator) broadcast(tick domain.Tick) {
	payload, err := json.Marshal(tick)
	if err != nil {
		g.log.Error("encoding tick", "error", err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(g.clients, conn)
			g.log.Info("feed client disconnected", "total", len(g.clients))
		}
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
