// Package store persists order and fill history. The SQLite store is the
// durable record the audit tool replays; the Parquet archive is a columnar
// export of the same fill log for offline analysis.
package store

import (
	"context"

	"simtrade/internal/domain"
)

// OrderHistory persists order records and their status transitions.
type OrderHistory interface {
	// SaveOrder inserts (or replaces) an order record.
	SaveOrder(ctx context.Context, order *domain.Order) error

	// UpdateOrderStatus records a status transition for an existing order.
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, reason string) error

	// RecentOrders returns the most recent orders, newest first, up to limit.
	RecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
}

// FillHistory persists the immutable fill log.
type FillHistory interface {
	// RecordFill appends a fill to the history.
	RecordFill(ctx context.Context, fill *domain.Fill) error

	// Fills returns the full fill history in chronological order, the
	// ordering realized-PnL replay depends on.
	Fills(ctx context.Context) ([]domain.Fill, error)
}

// History is the combined durable record consumed by the coordinator.
type History interface {
	OrderHistory
	FillHistory
}
