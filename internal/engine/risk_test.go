package engine

import (
	"errors"
	"testing"

	"simtrade/internal/config"
	"simtrade/internal/domain"
	"simtrade/internal/portfolio"
)

func testLimits() config.RiskConfig {
	return config.RiskConfig{PositionLimit: 1000, NotionalLimit: 1000000}
}

func candidate(symbol string, side domain.Side, qty int64, price float64) domain.OrderCandidate {
	return domain.OrderCandidate{
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Price:    price,
		Type:     domain.OrderTypeLimit,
		Strategy: "test",
	}
}

func reasonOf(t *testing.T, err error) domain.RejectReason {
	t.Helper()
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("error %v is not a RejectionError", err)
	}
	return rej.Reason
}

func TestRiskGateApprovesWithinLimits(t *testing.T) {
	gate := NewRiskGate(testLimits(), portfolio.NewLedger())

	id, err := gate.Check(candidate("AAPL", domain.SideBuy, 100, 150))
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if id == "" {
		t.Fatal("approved candidate was not assigned an order id")
	}

	// The candidate is retained for diagnostics.
	if _, ok := gate.Candidate(id); !ok {
		t.Errorf("Candidate(%q) not found after Check", id)
	}
}

func TestRiskGateMissingFields(t *testing.T) {
	gate := NewRiskGate(testLimits(), portfolio.NewLedger())

	cases := []domain.OrderCandidate{
		{Side: domain.SideBuy, Quantity: 100, Price: 10, Type: domain.OrderTypeLimit},   // no symbol
		{Symbol: "AAPL", Side: domain.SideBuy, Price: 10, Type: domain.OrderTypeLimit},  // no quantity
		{Symbol: "AAPL", Side: domain.SideBuy, Quantity: 100, Type: domain.OrderTypeLimit}, // no price
		{Symbol: "AAPL", Quantity: 100, Price: 10, Type: domain.OrderTypeLimit},         // no side
		{Symbol: "AAPL", Side: domain.SideBuy, Quantity: 100, Price: 10},                // no type
	}
	for i, c := range cases {
		id, err := gate.Check(c)
		if err == nil {
			t.Errorf("case %d: Check accepted incomplete candidate %+v", i, c)
			continue
		}
		if got := reasonOf(t, err); got != domain.ReasonMissingFields {
			t.Errorf("case %d: reason = %v, want MISSING_FIELDS", i, got)
		}
		// Rejected candidates are retained too.
		if _, ok := gate.Candidate(id); !ok {
			t.Errorf("case %d: rejected candidate not retained", i)
		}
	}
}

func TestRiskGatePositionLimit(t *testing.T) {
	ledger := portfolio.NewLedger()
	gate := NewRiskGate(testLimits(), ledger)

	// Build a position of 950 long.
	if _, err := ledger.ApplyFill(domain.Fill{Symbol: "AAPL", Side: domain.SideBuy, Quantity: 950, Price: 10}); err != nil {
		t.Fatalf("seeding position: %v", err)
	}

	// 950 + 100 > 1000 → rejected.
	_, err := gate.Check(candidate("AAPL", domain.SideBuy, 100, 10))
	if err == nil {
		t.Fatal("Check accepted a buy that breaches the position limit")
	}
	if got := reasonOf(t, err); got != domain.ReasonPositionLimit {
		t.Errorf("reason = %v, want POSITION_LIMIT", got)
	}

	// 950 + 50 = 1000 is exactly at the limit → allowed.
	if _, err := gate.Check(candidate("AAPL", domain.SideBuy, 50, 10)); err != nil {
		t.Errorf("Check rejected an at-limit buy: %v", err)
	}

	// Selling 1950 would take the position to -1000, exactly at the short
	// limit → allowed; 1951 breaches it.
	if _, err := gate.Check(candidate("AAPL", domain.SideSell, 1950, 10)); err != nil {
		t.Errorf("Check rejected an at-limit sell: %v", err)
	}
	_, err = gate.Check(candidate("AAPL", domain.SideSell, 1951, 10))
	if err == nil {
		t.Fatal("Check accepted a sell that breaches the short position limit")
	}
	if got := reasonOf(t, err); got != domain.ReasonPositionLimit {
		t.Errorf("reason = %v, want POSITION_LIMIT", got)
	}

	// The gate never mutates the ledger.
	if p := ledger.Position("AAPL"); p.Quantity != 950 {
		t.Errorf("ledger mutated by gate checks: quantity = %d, want 950", p.Quantity)
	}
}

func TestRiskGateNotionalLimit(t *testing.T) {
	ledger := portfolio.NewLedger()
	gate := NewRiskGate(config.RiskConfig{PositionLimit: 10000, NotionalLimit: 50000}, ledger)

	// Existing notional: 400 * 100 = 40000.
	if _, err := ledger.ApplyFill(domain.Fill{Symbol: "MSFT", Side: domain.SideBuy, Quantity: 400, Price: 100}); err != nil {
		t.Fatalf("seeding position: %v", err)
	}

	// 40000 + 200*100 = 60000 > 50000 → rejected, even though the order is
	// for a different symbol.
	_, err := gate.Check(candidate("AAPL", domain.SideBuy, 200, 100))
	if err == nil {
		t.Fatal("Check accepted an order that breaches the notional limit")
	}
	if got := reasonOf(t, err); got != domain.ReasonNotionalLimit {
		t.Errorf("reason = %v, want NOTIONAL_LIMIT", got)
	}

	// A sell on the already-held symbol is still charged its full notional
	// against the pre-order aggregate. 40000 + 200*100 > 50000 → rejected.
	// This mirrors the deliberately conservative gate policy.
	_, err = gate.Check(candidate("MSFT", domain.SideSell, 200, 100))
	if err == nil {
		t.Fatal("Check accepted a reducing sell that the conservative notional policy rejects")
	}
	if got := reasonOf(t, err); got != domain.ReasonNotionalLimit {
		t.Errorf("reason = %v, want NOTIONAL_LIMIT", got)
	}

	// Within the remaining headroom → approved.
	if _, err := gate.Check(candidate("AAPL", domain.SideBuy, 50, 100)); err != nil {
		t.Errorf("Check rejected an order within the notional limit: %v", err)
	}
}

func TestRiskGateAssignsUniqueIDs(t *testing.T) {
	gate := NewRiskGate(testLimits(), portfolio.NewLedger())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := gate.Check(candidate("AAPL", domain.SideBuy, 1, 10))
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = true
	}
}
