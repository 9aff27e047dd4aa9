// Package domain defines the shared types that flow through the trading
// pipeline: market ticks, book snapshots, order candidates, orders, fills,
// and positions.
package domain

import "time"

// Side is the direction of an order or fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType identifies how an order should be priced at the exchange.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus tracks an order through its lifecycle. Transitions are
// NEW → APPROVED | REJECTED, APPROVED → FILLED | REJECTED. REJECTED and
// FILLED are terminal.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusFilled   OrderStatus = "FILLED"
)

// Tick is a normalized top-of-book quote from the market data feed.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	BidSize   int64   `json:"bid_size"`
	AskSize   int64   `json:"ask_size"`
	Timestamp float64 `json:"timestamp"` // Unix seconds, fractional
}

// BookSnapshot is the reduced best-bid/best-ask view of one symbol,
// maintained by the book package and consumed by strategies and the PnL
// engine (mid is the mark price).
type BookSnapshot struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	BidSize   int64   `json:"bid_size"`
	AskSize   int64   `json:"ask_size"`
	Spread    float64 `json:"spread"`
	Mid       float64 `json:"mid"`
	Timestamp float64 `json:"timestamp"`
}

// OrderCandidate is the output contract of a strategy: a proposed order that
// has not yet passed the risk gate and carries no identity.
type OrderCandidate struct {
	Symbol    string
	Side      Side
	Quantity  int64
	Price     float64
	Type      OrderType
	Timestamp float64
	Strategy  string
}

// Order is an order candidate that has been handed to the lifecycle
// coordinator. Its identity is assigned by the risk gate at approval time.
// Orders are never deleted, only superseded by status transitions.
type Order struct {
	ID        string      `json:"order_id"`
	Symbol    string      `json:"symbol"`
	Side      Side        `json:"side"`
	Quantity  int64       `json:"quantity"`
	Price     float64     `json:"price"`
	Type      OrderType   `json:"order_type"`
	Timestamp float64     `json:"timestamp"`
	Strategy  string      `json:"strategy"`
	Status    OrderStatus `json:"status"`
	Reason    string      `json:"reason,omitempty"`
}

// Fill is a confirmed execution. Immutable once created. Quantity may be
// less than the originating order's quantity (partial fill); one order
// produces at most one fill.
type Fill struct {
	ID        string  `json:"fill_id"`
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Side      Side    `json:"side"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	Timestamp float64 `json:"timestamp"`
}

// Position is the per-symbol net holding. Quantity is signed: positive is
// long, negative is short. AvgPrice is defined only while Quantity is
// non-zero; it resets to 0 when the position goes flat.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"net_qty"`
	AvgPrice float64 `json:"avg_price"`
}

// PnLSnapshot summarizes profit and loss across all symbols.
type PnLSnapshot struct {
	TotalRealized   float64 `json:"total_realized"`
	TotalUnrealized float64 `json:"total_unrealized"`
	Total           float64 `json:"total"`
}

// Now returns the current time as a fractional Unix-seconds timestamp, the
// wire format used throughout the pipeline.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
