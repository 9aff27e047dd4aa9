// Package builtins provides the built-in strategy implementations that ship
// with simtrade.
package builtins

import (
	"simtrade/internal/config"
	"simtrade/internal/domain"
	"simtrade/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Spread)(nil)

// Spread trades on quoted spread width: it buys at the ask when the spread
// is tight (liquidity is cheap) and sells the whole long position at the bid
// when the spread widens.
type Spread struct {
	buyThreshold  float64
	sellThreshold float64
	orderQty      int64
	positionLimit int64
}

// NewSpread creates a Spread strategy. positionLimit caps the buy size so
// the strategy does not propose orders the risk gate is certain to reject.
func NewSpread(cfg config.StrategyConfig, positionLimit int64) *Spread {
	return &Spread{
		buyThreshold:  cfg.BuySpreadThreshold,
		sellThreshold: cfg.SellSpreadThreshold,
		orderQty:      cfg.OrderQty,
		positionLimit: positionLimit,
	}
}

// Name returns "spread".
func (s *Spread) Name() string {
	return "spread"
}

// OnBook proposes a BUY when the spread is below the buy threshold and the
// position has room, or a SELL of the entire long position when the spread
// exceeds the sell threshold. Otherwise no signal.
func (s *Spread) OnBook(book domain.BookSnapshot, positions map[string]int64) *domain.OrderCandidate {
	current := positions[book.Symbol]

	if book.Spread < s.buyThreshold && current < s.positionLimit {
		qty := s.orderQty
		if room := s.positionLimit - current; room < qty {
			qty = room
		}
		return &domain.OrderCandidate{
			Symbol:    book.Symbol,
			Side:      domain.SideBuy,
			Quantity:  qty,
			Price:     book.Ask,
			Type:      domain.OrderTypeLimit,
			Timestamp: book.Timestamp,
			Strategy:  s.Name(),
		}
	}

	if book.Spread > s.sellThreshold && current > 0 {
		return &domain.OrderCandidate{
			Symbol:    book.Symbol,
			Side:      domain.SideSell,
			Quantity:  current, // sell entire position
			Price:     book.Bid,
			Type:      domain.OrderTypeLimit,
			Timestamp: book.Timestamp,
			Strategy:  s.Name(),
		}
	}

	return nil
}
