// Package event carries order lifecycle notifications from the coordinator
// to external collaborators (persistence, dashboard) over an in-process
// pub/sub bus.
package event

import (
	"sync"

	"simtrade/internal/domain"
)

// Type discriminates the payload carried by an Event.
type Type string

const (
	TypeOrderStatus Type = "order_status"
	TypeFill        Type = "fill"
	TypePositions   Type = "positions"
	TypePnL         Type = "pnl"
)

// OrderStatusChange announces a lifecycle transition for one order.
type OrderStatusChange struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
	Reason  string             `json:"reason,omitempty"`
}

// Event is one lifecycle notification. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type        Type                `json:"type"`
	OrderStatus *OrderStatusChange  `json:"order_status,omitempty"`
	Fill        *domain.Fill        `json:"fill,omitempty"`
	Positions   []domain.Position   `json:"positions,omitempty"`
	PnL         *domain.PnLSnapshot `json:"pnl,omitempty"`
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose channel is full misses the event, so consumers that need a complete
// record (persistence) are written to synchronously by the coordinator
// instead of through the bus.
type Bus struct {
	mu        sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe creates a new subscription channel with the given buffer size.
func (b *Bus) Subscribe(bufSize int) (id int, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id = b.nextSubID
	b.nextSubID++
	c := make(chan Event, bufSize)
	b.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// Publish delivers the event to every subscriber that has buffer space.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber, drop event.
		}
	}
	b.mu.Unlock()
}
