package engine

import "sync/atomic"

// Stats counts pipeline activity for the periodic status log and the
// dashboard. All counters are safe for concurrent use.
type Stats struct {
	ticks      atomic.Int64
	signals    atomic.Int64
	ordersSent atomic.Int64
	fills      atomic.Int64
	rejected   atomic.Int64
}

// IncTicks records one processed market tick.
func (s *Stats) IncTicks() {
	s.ticks.Add(1)
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	TicksProcessed   int64 `json:"ticks_processed"`
	SignalsGenerated int64 `json:"signals_generated"`
	OrdersSent       int64 `json:"orders_sent"`
	FillsReceived    int64 `json:"fills_received"`
	OrdersRejected   int64 `json:"orders_rejected"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TicksProcessed:   s.ticks.Load(),
		SignalsGenerated: s.signals.Load(),
		OrdersSent:       s.ordersSent.Load(),
		FillsReceived:    s.fills.Load(),
		OrdersRejected:   s.rejected.Load(),
	}
}
