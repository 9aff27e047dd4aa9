package builtins

import (
	"testing"

	"simtrade/internal/config"
	"simtrade/internal/domain"
)

func newTestSpread() *Spread {
	return NewSpread(config.StrategyConfig{
		BuySpreadThreshold:  0.05,
		SellSpreadThreshold: 0.10,
		OrderQty:            100,
	}, 1000)
}

func book(symbol string, bid, ask float64) domain.BookSnapshot {
	return domain.BookSnapshot{
		Symbol: symbol, Bid: bid, Ask: ask,
		Spread: ask - bid, Mid: (bid + ask) / 2,
	}
}

func TestSpreadBuysOnTightSpread(t *testing.T) {
	s := newTestSpread()

	c := s.OnBook(book("AAPL", 150.00, 150.02), map[string]int64{})
	if c == nil {
		t.Fatal("no signal on a tight spread")
	}
	if c.Side != domain.SideBuy || c.Quantity != 100 || c.Price != 150.02 {
		t.Errorf("candidate = %+v, want BUY 100 @ ask 150.02", c)
	}
	if c.Type != domain.OrderTypeLimit || c.Strategy != "spread" {
		t.Errorf("candidate metadata = %+v", c)
	}
}

func TestSpreadCapsBuyAtPositionLimit(t *testing.T) {
	s := newTestSpread()

	c := s.OnBook(book("AAPL", 150.00, 150.02), map[string]int64{"AAPL": 960})
	if c == nil {
		t.Fatal("no signal with headroom remaining")
	}
	if c.Quantity != 40 {
		t.Errorf("quantity = %d, want capped 40", c.Quantity)
	}

	if c := s.OnBook(book("AAPL", 150.00, 150.02), map[string]int64{"AAPL": 1000}); c != nil {
		t.Errorf("signal %+v at the position limit, want none", c)
	}
}

func TestSpreadSellsEntireLongOnWideSpread(t *testing.T) {
	s := newTestSpread()

	c := s.OnBook(book("AAPL", 150.00, 150.15), map[string]int64{"AAPL": 340})
	if c == nil {
		t.Fatal("no signal on a wide spread with a long position")
	}
	if c.Side != domain.SideSell || c.Quantity != 340 || c.Price != 150.00 {
		t.Errorf("candidate = %+v, want SELL 340 @ bid 150.00", c)
	}
}

func TestSpreadNoSignal(t *testing.T) {
	s := newTestSpread()

	// Spread between the thresholds.
	if c := s.OnBook(book("AAPL", 150.00, 150.07), map[string]int64{"AAPL": 100}); c != nil {
		t.Errorf("signal %+v in the neutral band, want none", c)
	}
	// Wide spread but nothing to sell.
	if c := s.OnBook(book("AAPL", 150.00, 150.15), map[string]int64{}); c != nil {
		t.Errorf("signal %+v with a flat position, want none", c)
	}
	// Wide spread and a short position: the strategy never covers shorts.
	if c := s.OnBook(book("AAPL", 150.00, 150.15), map[string]int64{"AAPL": -50}); c != nil {
		t.Errorf("signal %+v with a short position, want none", c)
	}
}
