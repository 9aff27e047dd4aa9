// Package portfolio tracks per-symbol positions and profit/loss. The Ledger
// is the single source of truth for net quantity and average cost: it is
// mutated only by confirmed fills, read by the risk gate for pre-trade
// checks, and read by the PnL tracker for mark-to-market reporting.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"simtrade/internal/domain"
)

// ErrInvalidFill is returned when a fill fails ledger validation. Fills
// reaching the ledger have already passed the risk gate and the exchange
// simulator, so this indicates a programming error upstream.
var ErrInvalidFill = errors.New("invalid fill")

// entry is one symbol's position plus its writer lock. Each symbol has an
// independent lock: fills for different symbols never contend.
type entry struct {
	mu       sync.Mutex
	quantity int64
	avgPrice float64
}

// Ledger holds all positions. Safe for concurrent use; mutation is
// serialized per symbol.
type Ledger struct {
	mu      sync.RWMutex // guards the entries map itself
	entries map[string]*entry
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

func (l *Ledger) entryFor(symbol string) *entry {
	l.mu.RLock()
	e, ok := l.entries[symbol]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[symbol]; ok {
		return e
	}
	e = &entry{}
	l.entries[symbol] = e
	return e
}

// ApplyFill updates the position for the fill's symbol and returns the
// realized PnL delta. The update is all-or-nothing: the position is only
// written after the new state is fully computed, so a validation failure
// never leaves a partially mutated entry.
func (l *Ledger) ApplyFill(fill domain.Fill) (float64, error) {
	if fill.Symbol == "" || fill.Quantity <= 0 {
		return 0, fmt.Errorf("%w: symbol=%q quantity=%d", ErrInvalidFill, fill.Symbol, fill.Quantity)
	}
	if fill.Side != domain.SideBuy && fill.Side != domain.SideSell {
		return 0, fmt.Errorf("%w: side=%q", ErrInvalidFill, fill.Side)
	}

	e := l.entryFor(fill.Symbol)
	e.mu.Lock()
	defer e.mu.Unlock()

	newQty, newAvg, realized := applyFill(e.quantity, e.avgPrice, fill.Side, fill.Quantity, fill.Price)
	e.quantity = newQty
	e.avgPrice = newAvg
	return realized, nil
}

// applyFill is the pure accounting core: (position, fill) → (new position,
// realized delta). Deterministic, no state.
//
// Rules:
//   - Same direction as the position (or flat): accumulate with a
//     quantity-weighted average cost; nothing is realized.
//   - Opposite direction: close up to |position| at the old average cost and
//     realize the difference. A fill that over-closes flips the position,
//     and the remainder opens at the fill price.
//   - A flat result always has average cost 0.
func applyFill(qty int64, avg float64, side domain.Side, fillQty int64, price float64) (int64, float64, float64) {
	signed := fillQty
	if side == domain.SideSell {
		signed = -fillQty
	}
	newQty := qty + signed

	// Accumulation: flat position or fill in the same direction.
	if qty == 0 || (qty > 0) == (signed > 0) {
		newAvg := (float64(abs(qty))*avg + float64(fillQty)*price) / float64(abs(qty)+fillQty)
		return newQty, newAvg, 0
	}

	// Reduction: realize PnL on the closed quantity.
	closed := min(fillQty, abs(qty))
	var realized float64
	if qty > 0 {
		realized = float64(closed) * (price - avg)
	} else {
		realized = float64(closed) * (avg - price)
	}

	switch {
	case newQty == 0:
		return 0, 0, realized
	case (newQty > 0) != (qty > 0):
		// Over-close: the remainder starts a new position at the fill price.
		return newQty, price, realized
	default:
		return newQty, avg, realized
	}
}

// Position returns the current position for a symbol. A symbol that has
// never traded (or is flat) returns a zero-quantity position.
func (l *Ledger) Position(symbol string) domain.Position {
	l.mu.RLock()
	e, ok := l.entries[symbol]
	l.mu.RUnlock()
	if !ok {
		return domain.Position{Symbol: symbol}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Position{Symbol: symbol, Quantity: e.quantity, AvgPrice: e.avgPrice}
}

// Positions returns all non-zero positions, sorted by symbol.
func (l *Ledger) Positions() []domain.Position {
	l.mu.RLock()
	symbols := make([]string, 0, len(l.entries))
	for s := range l.entries {
		symbols = append(symbols, s)
	}
	l.mu.RUnlock()
	sort.Strings(symbols)

	positions := make([]domain.Position, 0, len(symbols))
	for _, s := range symbols {
		p := l.Position(s)
		if p.Quantity != 0 {
			positions = append(positions, p)
		}
	}
	return positions
}

// AggregateNotional returns sum(|quantity * avgPrice|) across all symbols,
// the figure the risk gate checks against the notional limit.
func (l *Ledger) AggregateNotional() float64 {
	var total float64
	for _, p := range l.Positions() {
		total += absf(float64(p.Quantity) * p.AvgPrice)
	}
	return total
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
