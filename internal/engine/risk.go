package engine

import (
	"sync"

	"github.com/google/uuid"

	"simtrade/internal/config"
	"simtrade/internal/domain"
	"simtrade/internal/portfolio"
)

// RiskGate performs pre-trade checks on order candidates: field validation,
// per-symbol position limits, and the aggregate notional limit. It reads
// position state from the ledger but never mutates it, and it assigns each
// candidate its order identity.
type RiskGate struct {
	limits config.RiskConfig
	ledger *portfolio.Ledger

	mu         sync.Mutex
	candidates map[string]domain.OrderCandidate // every candidate ever seen, for diagnostics
}

// NewRiskGate creates a RiskGate enforcing the given limits against the
// ledger's live positions.
func NewRiskGate(limits config.RiskConfig, ledger *portfolio.Ledger) *RiskGate {
	return &RiskGate{
		limits:     limits,
		ledger:     ledger,
		candidates: make(map[string]domain.OrderCandidate),
	}
}

// Check validates the candidate and returns its assigned order id, or a
// RejectionError. The id is assigned (and the candidate retained) whether or
// not the checks pass.
func (g *RiskGate) Check(c domain.OrderCandidate) (string, error) {
	id := uuid.NewString()

	g.mu.Lock()
	g.candidates[id] = c
	g.mu.Unlock()

	if c.Symbol == "" || c.Quantity <= 0 || c.Price <= 0 || c.Side == "" || c.Type == "" {
		return id, domain.NewRejection(domain.ReasonMissingFields, "")
	}

	current := g.ledger.Position(c.Symbol).Quantity
	switch c.Side {
	case domain.SideBuy:
		if current+c.Quantity > g.limits.PositionLimit {
			return id, domain.NewRejection(domain.ReasonPositionLimit, "")
		}
	case domain.SideSell:
		if current-c.Quantity < -g.limits.PositionLimit {
			return id, domain.NewRejection(domain.ReasonPositionLimit, "")
		}
	default:
		return id, domain.NewRejection(domain.ReasonMissingFields, "unknown side")
	}

	// The notional check uses the pre-order aggregate plus the candidate's
	// full notional, without netting against the candidate's own symbol, so
	// a reducing order can still trip the limit.
	notional := float64(c.Quantity) * c.Price
	if g.ledger.AggregateNotional()+notional > g.limits.NotionalLimit {
		return id, domain.NewRejection(domain.ReasonNotionalLimit, "")
	}

	return id, nil
}

// Candidate returns the retained candidate for an assigned id.
func (g *RiskGate) Candidate(id string) (domain.OrderCandidate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.candidates[id]
	return c, ok
}
