package exchange

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"simtrade/internal/config"
	"simtrade/internal/domain"
)

// scriptedRand replays canned values: Float64 draws come from floats in
// order, Intn draws from ints.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v
}

func testExecConfig() config.ExecutionConfig {
	return config.ExecutionConfig{
		FillProbability:    0.85,
		PartialProbability: 0.10,
		MinLatencyMs:       0,
		MaxLatencyMs:       0,
		SlippageBound:      0.02,
	}
}

func approvedOrder() *domain.Order {
	return &domain.Order{
		ID:       "order-1",
		Symbol:   "AAPL",
		Side:     domain.SideBuy,
		Quantity: 100,
		Price:    150.00,
		Type:     domain.OrderTypeLimit,
		Status:   domain.OrderStatusApproved,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func rejectReason(t *testing.T, err error) domain.RejectReason {
	t.Helper()
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("error %v is not a RejectionError", err)
	}
	return rej.Reason
}

func TestSimulatorFullFill(t *testing.T) {
	// Draws: latency, fill (0.5 < 0.85 → fill), partial (0.5 ≥ 0.10 → full),
	// slippage (0.75 → +0.01).
	rng := &scriptedRand{floats: []float64{0, 0.5, 0.5, 0.75}}
	sim := NewSimulator(testExecConfig(), rng, discard())

	fill, err := sim.Execute(context.Background(), approvedOrder())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fill.OrderID != "order-1" || fill.Symbol != "AAPL" || fill.Side != domain.SideBuy {
		t.Errorf("fill does not echo the order: %+v", fill)
	}
	if fill.Quantity != 100 {
		t.Errorf("quantity = %d, want full 100", fill.Quantity)
	}
	if fill.Price != 150.01 {
		t.Errorf("price = %v, want 150.01 (order price + 0.01 slippage)", fill.Price)
	}
	if fill.ID == "" {
		t.Error("fill has no id")
	}
	if fill.Timestamp == 0 {
		t.Error("fill has no timestamp")
	}
}

func TestSimulatorPartialFill(t *testing.T) {
	// Draws: latency, fill, partial (0.05 < 0.10 → partial), slippage 0.5 → 0.
	// Intn(100) scripted to 41 → quantity 42.
	rng := &scriptedRand{floats: []float64{0, 0.5, 0.05, 0.5}, ints: []int{41}}
	sim := NewSimulator(testExecConfig(), rng, discard())

	fill, err := sim.Execute(context.Background(), approvedOrder())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fill.Quantity != 42 {
		t.Errorf("quantity = %d, want 42", fill.Quantity)
	}
	if fill.Price != 150.00 {
		t.Errorf("price = %v, want 150.00 (zero slippage)", fill.Price)
	}
}

func TestSimulatorMarketReject(t *testing.T) {
	// Draws: latency, fill (0.9 ≥ 0.85 → reject).
	rng := &scriptedRand{floats: []float64{0, 0.9}}
	sim := NewSimulator(testExecConfig(), rng, discard())

	fill, err := sim.Execute(context.Background(), approvedOrder())
	if fill != nil {
		t.Fatalf("got fill %+v, want rejection", fill)
	}
	if got := rejectReason(t, err); got != domain.ReasonMarketReject {
		t.Errorf("reason = %v, want MARKET_REJECT", got)
	}
}

func TestSimulatorInvalidOrder(t *testing.T) {
	// No random draws are scripted: validation must reject before any are
	// consumed (and before any latency is applied).
	sim := NewSimulator(testExecConfig(), &scriptedRand{}, discard())

	cases := []*domain.Order{
		{Symbol: "AAPL", Side: domain.SideBuy, Quantity: 100, Price: 150}, // no id
		{ID: "o", Side: domain.SideBuy, Quantity: 100, Price: 150},        // no symbol
		{ID: "o", Symbol: "AAPL", Quantity: 100, Price: 150},              // no side
		{ID: "o", Symbol: "AAPL", Side: domain.SideBuy, Price: 150},       // no quantity
		{ID: "o", Symbol: "AAPL", Side: domain.SideBuy, Quantity: 100},    // no price
	}
	for i, order := range cases {
		_, err := sim.Execute(context.Background(), order)
		if err == nil {
			t.Errorf("case %d: Execute accepted invalid order %+v", i, order)
			continue
		}
		if got := rejectReason(t, err); got != domain.ReasonInvalidOrder {
			t.Errorf("case %d: reason = %v, want INVALID_ORDER", i, got)
		}
	}
}

func TestSimulatorRecoversFromFault(t *testing.T) {
	// An empty script panics on the first draw past validation; the
	// simulator must convert that into an EXCHANGE_ERROR rejection.
	sim := NewSimulator(testExecConfig(), &scriptedRand{}, discard())

	fill, err := sim.Execute(context.Background(), approvedOrder())
	if fill != nil {
		t.Fatalf("got fill %+v, want rejection", fill)
	}
	if got := rejectReason(t, err); got != domain.ReasonExchangeError {
		t.Errorf("reason = %v, want EXCHANGE_ERROR", got)
	}
}

// Over many seeded runs, fill quantity stays in [1, order quantity] and the
// fill price never deviates from the order price by more than the slippage
// bound (plus rounding).
func TestSimulatorBounds(t *testing.T) {
	cfg := testExecConfig()
	sim := NewSimulator(cfg, rand.New(rand.NewSource(42)), discard())
	order := approvedOrder()

	fills := 0
	for i := 0; i < 1000; i++ {
		fill, err := sim.Execute(context.Background(), order)
		if err != nil {
			if got := rejectReason(t, err); got != domain.ReasonMarketReject {
				t.Fatalf("iteration %d: unexpected reason %v", i, got)
			}
			continue
		}
		fills++
		if fill.Quantity < 1 || fill.Quantity > order.Quantity {
			t.Fatalf("iteration %d: quantity %d outside [1, %d]", i, fill.Quantity, order.Quantity)
		}
		// Rounding to 2dp can add at most half a cent on top of the bound.
		if dev := math.Abs(fill.Price - order.Price); dev > cfg.SlippageBound+0.005 {
			t.Fatalf("iteration %d: price deviation %v exceeds slippage bound", i, dev)
		}
	}
	if fills == 0 {
		t.Fatal("no fills in 1000 iterations; fill probability draw is broken")
	}
}
