package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"simtrade/internal/config"
	"simtrade/internal/domain"
)

// Compile-time interface check.
var _ Gateway = (*Simulator)(nil)

// Rand is the source of randomness for the simulator. *math/rand.Rand
// satisfies it; tests inject a scripted implementation for deterministic
// replay.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Simulator models exchange behaviour without a matching engine: a uniform
// latency delay, a Bernoulli fill decision, occasional partial fills, and
// uniform slippage on the fill price.
type Simulator struct {
	cfg config.ExecutionConfig
	log *slog.Logger

	mu  sync.Mutex // rng is not safe for concurrent use
	rng Rand
}

// NewSimulator creates a Simulator with the given execution parameters and
// randomness source.
func NewSimulator(cfg config.ExecutionConfig, rng Rand, log *slog.Logger) *Simulator {
	return &Simulator{cfg: cfg, rng: rng, log: log}
}

// Name returns "simulator".
func (s *Simulator) Name() string {
	return "simulator"
}

// Execute processes an approved order and resolves to a fill or a rejection.
// Invalid orders are rejected immediately with no latency. Any internal
// fault is recovered and converted to an EXCHANGE_ERROR rejection; the
// simulator never propagates a panic to the coordinator.
func (s *Simulator) Execute(ctx context.Context, order *domain.Order) (fill *domain.Fill, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("simulator fault", "order_id", order.ID, "panic", r)
			fill = nil
			err = domain.NewRejection(domain.ReasonExchangeError, fmt.Sprint(r))
		}
	}()

	if order.ID == "" || order.Symbol == "" || order.Side == "" || order.Quantity <= 0 || order.Price <= 0 {
		return nil, domain.NewRejection(domain.ReasonInvalidOrder,
			fmt.Sprintf("symbol=%q side=%q qty=%d price=%v", order.Symbol, order.Side, order.Quantity, order.Price))
	}

	s.sleep(ctx, s.latency())

	filled, quantity, price, slippage := s.decide(order)
	if !filled {
		s.log.Info("order rejected by market", "order_id", order.ID, "symbol", order.Symbol)
		return nil, domain.NewRejection(domain.ReasonMarketReject, "")
	}

	fill = &domain.Fill{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: domain.Now(),
	}
	s.log.Info("order filled",
		"order_id", order.ID, "symbol", order.Symbol, "side", order.Side,
		"quantity", quantity, "price", price, "slippage", slippage)
	return fill, nil
}

// decide draws the fill outcome, quantity, and price under a single lock so
// concurrent executions see independent random sequences.
func (s *Simulator) decide(order *domain.Order) (filled bool, quantity int64, price, slippage float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() >= s.cfg.FillProbability {
		return false, 0, 0, 0
	}

	quantity = order.Quantity
	if s.rng.Float64() < s.cfg.PartialProbability {
		quantity = 1 + int64(s.rng.Intn(int(order.Quantity)))
	}

	slippage = (s.rng.Float64()*2 - 1) * s.cfg.SlippageBound
	price = math.Round((order.Price+slippage)*100) / 100
	return true, quantity, price, slippage
}

// latency draws a uniform delay from the configured millisecond range.
func (s *Simulator) latency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	span := s.cfg.MaxLatencyMs - s.cfg.MinLatencyMs
	ms := float64(s.cfg.MinLatencyMs) + s.rng.Float64()*float64(span)
	return time.Duration(ms * float64(time.Millisecond))
}

// sleep waits out the simulated round-trip. Context cancellation cuts the
// delay short but the order still resolves, so a shutdown drains in-flight
// executions instead of aborting them mid-update.
func (s *Simulator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
