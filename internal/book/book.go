// Package book maintains the best-bid/best-ask snapshot per symbol, reduced
// from the incoming tick stream. The mid prices it tracks are the mark
// prices used for unrealized PnL.
package book

import (
	"math"
	"sync"

	"simtrade/internal/domain"
)

// Book holds the latest top-of-book snapshot per symbol. Safe for concurrent
// use.
type Book struct {
	mu    sync.RWMutex
	books map[string]domain.BookSnapshot
}

// New creates an empty Book.
func New() *Book {
	return &Book{books: make(map[string]domain.BookSnapshot)}
}

// Update replaces the symbol's snapshot with one derived from the tick and
// returns it. Spread and mid are rounded to 4 decimal places.
func (b *Book) Update(tick domain.Tick) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		Symbol:    tick.Symbol,
		Bid:       tick.Bid,
		Ask:       tick.Ask,
		BidSize:   tick.BidSize,
		AskSize:   tick.AskSize,
		Spread:    round4(tick.Ask - tick.Bid),
		Mid:       round4((tick.Bid + tick.Ask) / 2),
		Timestamp: tick.Timestamp,
	}

	b.mu.Lock()
	b.books[tick.Symbol] = snap
	b.mu.Unlock()
	return snap
}

// Snapshot returns the current book for a symbol.
func (b *Book) Snapshot(symbol string) (domain.BookSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.books[symbol]
	return snap, ok
}

// All returns a copy of every symbol's current snapshot.
func (b *Book) All() map[string]domain.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]domain.BookSnapshot, len(b.books))
	for s, snap := range b.books {
		out[s] = snap
	}
	return out
}

// Marks returns the latest mid price per symbol, the external mark prices
// the PnL engine consumes.
func (b *Book) Marks() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	marks := make(map[string]float64, len(b.books))
	for s, snap := range b.books {
		marks[s] = snap.Mid
	}
	return marks
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
