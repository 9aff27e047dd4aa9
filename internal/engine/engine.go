// Package engine coordinates the order lifecycle: risk gating, simulated
// execution, position accounting, and PnL reporting, emitting events at each
// status transition.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"simtrade/internal/domain"
	"simtrade/internal/event"
	"simtrade/internal/exchange"
	"simtrade/internal/portfolio"
	"simtrade/internal/store"
)

// executionQueueSize bounds the number of approved orders waiting on one
// symbol's execution worker. The ingestion loop never blocks on a full
// queue; the order is rejected instead.
const executionQueueSize = 64

// MarkSource supplies current mark prices (latest mids) for unrealized PnL.
type MarkSource interface {
	Marks() map[string]float64
}

// Engine drives each signal through the pipeline: risk gate → execution →
// ledger → PnL, with per-order status transitions NEW → APPROVED|REJECTED
// and APPROVED → FILLED|REJECTED.
//
// Executions are scheduled on one worker goroutine per symbol, so the
// simulator's latency never blocks ingestion, and fills for a symbol reach
// the ledger in the order their executions were issued. Cross-symbol
// ordering is unconstrained.
type Engine struct {
	gate    *RiskGate
	gateway exchange.Gateway
	ledger  *portfolio.Ledger
	pnl     *portfolio.PnLTracker
	history store.History // may be nil (no persistence)
	marks   MarkSource    // may be nil (no unrealized PnL)
	bus     *event.Bus
	log     *slog.Logger
	stats   *Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	queues  map[string]chan func()
	orders  map[string]*domain.Order
	closed  bool
}

// NewEngine creates an Engine wired with the given dependencies. history and
// marks may be nil.
func NewEngine(
	gate *RiskGate,
	gateway exchange.Gateway,
	ledger *portfolio.Ledger,
	pnl *portfolio.PnLTracker,
	history store.History,
	marks MarkSource,
	bus *event.Bus,
	log *slog.Logger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		gate:    gate,
		gateway: gateway,
		ledger:  ledger,
		pnl:     pnl,
		history: history,
		marks:   marks,
		bus:     bus,
		log:     log,
		stats:   &Stats{},
		ctx:     ctx,
		cancel:  cancel,
		queues:  make(map[string]chan func()),
		orders:  make(map[string]*domain.Order),
	}
}

// Stats returns the engine's counters.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Positions returns the ledger's non-zero positions.
func (e *Engine) Positions() []domain.Position {
	return e.ledger.Positions()
}

// PnL returns the current PnL snapshot using the latest mark prices.
func (e *Engine) PnL() domain.PnLSnapshot {
	return e.pnl.Snapshot(e.ledger.Positions(), e.markPrices())
}

// Order returns the tracked order for an id.
func (e *Engine) Order(id string) (domain.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// ProcessSignal drives one signal through the pipeline. A fault anywhere in
// the pipeline drops the signal without crashing the caller's loop; rejected
// orders are terminal and never retried.
func (e *Engine) ProcessSignal(candidate domain.OrderCandidate) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("signal processing fault, dropping signal",
				"symbol", candidate.Symbol, "panic", r)
		}
	}()

	e.stats.signals.Add(1)

	id, gateErr := e.gate.Check(candidate)
	order := &domain.Order{
		ID:        id,
		Symbol:    candidate.Symbol,
		Side:      candidate.Side,
		Quantity:  candidate.Quantity,
		Price:     candidate.Price,
		Type:      candidate.Type,
		Timestamp: candidate.Timestamp,
		Strategy:  candidate.Strategy,
		Status:    domain.OrderStatusNew,
	}
	e.track(order)
	e.persistOrder(order)

	if gateErr != nil {
		e.reject(order, gateErr)
		return
	}

	e.transition(order, domain.OrderStatusApproved, "")
	e.stats.ordersSent.Add(1)

	if !e.enqueue(order.Symbol, func() { e.execute(order) }) {
		e.reject(order, domain.NewRejection(domain.ReasonExchangeError, "execution queue full"))
	}
}

// execute runs on a symbol's worker goroutine.
func (e *Engine) execute(order *domain.Order) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("execution fault, dropping order", "order_id", order.ID, "panic", r)
		}
	}()

	fill, err := e.gateway.Execute(e.ctx, order)
	if err != nil {
		e.reject(order, err)
		return
	}
	e.settle(order, fill)
}

// settle applies a confirmed fill: ledger mutation, realized PnL update,
// terminal FILLED status, persistence, and outward events.
func (e *Engine) settle(order *domain.Order, fill *domain.Fill) {
	delta, err := e.ledger.ApplyFill(*fill)
	if err != nil {
		// Should never happen for a simulator-produced fill. The ledger is
		// untouched for this symbol; other symbols are unaffected.
		e.log.Error("ledger rejected fill", "order_id", order.ID, "fill_id", fill.ID, "error", err)
		e.reject(order, domain.NewRejection(domain.ReasonExchangeError, err.Error()))
		return
	}
	if delta != 0 {
		e.pnl.AddRealized(fill.Symbol, delta)
	}
	e.stats.fills.Add(1)

	e.transition(order, domain.OrderStatusFilled, "")
	e.persistFill(fill)

	e.log.Info("order filled",
		"order_id", order.ID, "symbol", fill.Symbol, "side", fill.Side,
		"quantity", fill.Quantity, "price", fill.Price, "realized_delta", delta)

	e.bus.Publish(event.Event{Type: event.TypeFill, Fill: fill})
	positions := e.ledger.Positions()
	e.bus.Publish(event.Event{Type: event.TypePositions, Positions: positions})
	pnl := e.pnl.Snapshot(positions, e.markPrices())
	e.bus.Publish(event.Event{Type: event.TypePnL, PnL: &pnl})
}

// reject marks the order terminally rejected with its structured reason.
// No ledger mutation occurs on this path.
func (e *Engine) reject(order *domain.Order, err error) {
	reason := string(domain.ReasonOf(err))
	e.stats.rejected.Add(1)
	e.log.Warn("order rejected", "order_id", order.ID, "symbol", order.Symbol, "reason", reason)
	e.transition(order, domain.OrderStatusRejected, reason)
}

// transition updates the order's status, persists it, and emits the status
// change event.
func (e *Engine) transition(order *domain.Order, status domain.OrderStatus, reason string) {
	e.mu.Lock()
	order.Status = status
	order.Reason = reason
	e.mu.Unlock()

	// Persistence does not use e.ctx: cancelling it during Close only
	// shortens simulated latency, and the drained orders must still reach
	// the durable record.
	if e.history != nil {
		if err := e.history.UpdateOrderStatus(context.Background(), order.ID, status, reason); err != nil {
			e.log.Error("persisting order status", "order_id", order.ID, "error", err)
		}
	}

	e.bus.Publish(event.Event{Type: event.TypeOrderStatus, OrderStatus: &event.OrderStatusChange{
		OrderID: order.ID,
		Status:  status,
		Reason:  reason,
	}})
}

func (e *Engine) track(order *domain.Order) {
	e.mu.Lock()
	e.orders[order.ID] = order
	e.mu.Unlock()
}

func (e *Engine) persistOrder(order *domain.Order) {
	if e.history == nil {
		return
	}
	if err := e.history.SaveOrder(context.Background(), order); err != nil {
		e.log.Error("persisting order", "order_id", order.ID, "error", err)
	}
}

func (e *Engine) persistFill(fill *domain.Fill) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordFill(context.Background(), fill); err != nil {
		e.log.Error("persisting fill", "fill_id", fill.ID, "error", err)
	}
}

func (e *Engine) markPrices() map[string]float64 {
	if e.marks == nil {
		return nil
	}
	return e.marks.Marks()
}

// enqueue schedules a task on the symbol's execution worker, creating the
// worker on first use. Returns false if the engine is closed or the queue is
// full.
func (e *Engine) enqueue(symbol string, task func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	q, ok := e.queues[symbol]
	if !ok {
		q = make(chan func(), executionQueueSize)
		e.queues[symbol] = q
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for t := range q {
				t()
			}
		}()
	}

	// The send stays under the lock so a concurrent Close cannot close the
	// queue between the closed check and the send. It never blocks: a full
	// queue returns false.
	select {
	case q <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting new orders and drains in-flight executions before
// returning, so no ledger update is abandoned mid-flight. Cancelling the
// context shortens pending simulated latencies; the orders still resolve.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, q := range e.queues {
		close(q)
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}
