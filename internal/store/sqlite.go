package store

import (
	"context"
	"database/sql"
	"fmt"

	"simtrade/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ OrderHistory = (*SQLiteStore)(nil)
var _ FillHistory = (*SQLiteStore)(nil)
var _ History = (*SQLiteStore)(nil)

// SQLiteStore implements order and fill history backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id  TEXT PRIMARY KEY,
	symbol    TEXT,
	side      TEXT,
	quantity  INTEGER,
	price     REAL,
	timestamp REAL,
	status    TEXT,
	reason    TEXT,
	strategy  TEXT
);
CREATE TABLE IF NOT EXISTS fills (
	fill_id   TEXT PRIMARY KEY,
	order_id  TEXT,
	symbol    TEXT,
	side      TEXT,
	quantity  INTEGER,
	price     REAL,
	timestamp REAL
);
CREATE INDEX IF NOT EXISTS idx_fills_timestamp ON fills(timestamp);
CREATE INDEX IF NOT EXISTS idx_orders_timestamp ON orders(timestamp);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// OrderHistory implementation
// ---------------------------------------------------------------------------

// SaveOrder inserts (or replaces) an order record.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders
		(order_id, symbol, side, quantity, price, timestamp, status, reason, strategy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Symbol, string(order.Side), order.Quantity, order.Price,
		order.Timestamp, string(order.Status), order.Reason, order.Strategy,
	)
	return err
}

// UpdateOrderStatus records a status transition for an existing order.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, reason = ? WHERE order_id = ?`,
		string(status), reason, id,
	)
	return err
}

// RecentOrders returns the most recent orders, newest first.
func (s *SQLiteStore) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, symbol, side, quantity, price, timestamp, status, reason, strategy
		FROM orders ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var side, status string
		if err := rows.Scan(&o.ID, &o.Symbol, &side, &o.Quantity, &o.Price,
			&o.Timestamp, &status, &o.Reason, &o.Strategy); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ---------------------------------------------------------------------------
// FillHistory implementation
// ---------------------------------------------------------------------------

// RecordFill appends a fill to the history.
func (s *SQLiteStore) RecordFill(ctx context.Context, fill *domain.Fill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (fill_id, order_id, symbol, side, quantity, price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fill.ID, fill.OrderID, fill.Symbol, string(fill.Side),
		fill.Quantity, fill.Price, fill.Timestamp,
	)
	return err
}

// Fills returns the full fill history in chronological order.
func (s *SQLiteStore) Fills(ctx context.Context) ([]domain.Fill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fill_id, order_id, symbol, side, quantity, price, timestamp
		FROM fills ORDER BY timestamp ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var side string
		if err := rows.Scan(&f.ID, &f.OrderID, &f.Symbol, &side,
			&f.Quantity, &f.Price, &f.Timestamp); err != nil {
			return nil, err
		}
		f.Side = domain.Side(side)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}
