package portfolio

import (
	"sync"

	"simtrade/internal/domain"
)

// PnLTracker accumulates realized PnL per symbol and derives unrealized PnL
// on demand from ledger positions and external mark prices. Realized PnL is
// fed exclusively by the ledger's fill deltas, so an incremental total always
// equals a chronological replay of the fill history (see ReplayRealized).
type PnLTracker struct {
	mu       sync.RWMutex
	realized map[string]float64
}

// NewPnLTracker creates a tracker with no accumulated PnL.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{realized: make(map[string]float64)}
}

// AddRealized adds a realized PnL delta for a symbol.
func (t *PnLTracker) AddRealized(symbol string, delta float64) {
	t.mu.Lock()
	t.realized[symbol] += delta
	t.mu.Unlock()
}

// Realized returns a copy of the per-symbol realized PnL accumulators.
func (t *PnLTracker) Realized() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.realized))
	for s, v := range t.realized {
		out[s] = v
	}
	return out
}

// TotalRealized returns the sum of realized PnL across all symbols.
func (t *PnLTracker) TotalRealized() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total float64
	for _, v := range t.realized {
		total += v
	}
	return total
}

// Unrealized computes mark-to-market PnL per symbol: (mark - avg) * qty.
// Symbols without a mark price contribute nothing.
func Unrealized(positions []domain.Position, marks map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(positions))
	for _, p := range positions {
		mark, ok := marks[p.Symbol]
		if !ok {
			continue
		}
		out[p.Symbol] = (mark - p.AvgPrice) * float64(p.Quantity)
	}
	return out
}

// Snapshot combines realized and unrealized PnL into the totals reported to
// external collaborators.
func (t *PnLTracker) Snapshot(positions []domain.Position, marks map[string]float64) domain.PnLSnapshot {
	var unrealized float64
	for _, v := range Unrealized(positions, marks) {
		unrealized += v
	}
	realized := t.TotalRealized()
	return domain.PnLSnapshot{
		TotalRealized:   realized,
		TotalUnrealized: unrealized,
		Total:           realized + unrealized,
	}
}

// ReplayRealized recomputes per-symbol realized PnL from scratch by replaying
// a fill history in order through the accounting core. This is the offline
// reconciliation path: its output must match the incremental accumulators
// for the same fill stream.
func ReplayRealized(fills []domain.Fill) map[string]float64 {
	type pos struct {
		qty int64
		avg float64
	}
	positions := make(map[string]pos)
	realized := make(map[string]float64)

	for _, f := range fills {
		p := positions[f.Symbol]
		newQty, newAvg, delta := applyFill(p.qty, p.avg, f.Side, f.Quantity, f.Price)
		positions[f.Symbol] = pos{qty: newQty, avg: newAvg}
		if delta != 0 {
			realized[f.Symbol] += delta
		}
	}
	return realized
}
