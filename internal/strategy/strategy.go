// Package strategy defines the Strategy interface for signal generation and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"simtrade/internal/domain"
)

// Strategy turns a book snapshot and the current positions into at most one
// order candidate. Returning nil means no signal.
type Strategy interface {
	// Name returns the unique identifier for this strategy, carried on every
	// order it originates.
	Name() string

	// OnBook is called with each updated book snapshot. positions maps
	// symbol to net quantity for all non-zero positions.
	OnBook(book domain.BookSnapshot, positions map[string]int64) *domain.OrderCandidate
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
