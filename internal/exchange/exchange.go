// Package exchange defines the Gateway interface for order execution and
// provides the stochastic simulator used by the trading pipeline.
package exchange

import (
	"context"

	"simtrade/internal/domain"
)

// Gateway abstracts the execution venue. The call may suspend for a
// simulated network round-trip before resolving; it must never block the
// caller's ingestion of new market data (the coordinator schedules each
// execution independently).
type Gateway interface {
	// Name returns the venue identifier (e.g. "simulator").
	Name() string

	// Execute submits an approved order and resolves to a fill or an error
	// carrying a structured rejection reason.
	Execute(ctx context.Context, order *domain.Order) (*domain.Fill, error)
}
