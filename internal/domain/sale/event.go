package sale

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a sale lifecycle event.
type EventType string

const (
	EventCreated   EventType = "sale.created"
	EventModified  EventType = "sale.modified"
	EventCancelled EventType = "sale.cancelled"
)

// Event is a notification about a persisted sale change. It carries a
// snapshot, never the live aggregate.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	OccurredAt time.Time
	// Reason is set for cancellations only.
	Reason string
	Sale   Snapshot
}

// NewEvent builds an event of type t for sale.
func NewEvent(t EventType, sale *Sale, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: at,
		Sale:       sale.Snapshot(),
	}
}

// Cancellation is the outcome of Service.CancelSale. The reason is audit
// data for the cancelled event and is not part of the sale.
type Cancellation struct {
	Reason string
	At     time.Time
}

// Event builds the cancelled event for sale, usually after it was persisted.
func (c Cancellation) Event(sale *Sale) Event {
	ev := NewEvent(EventCancelled, sale, c.At)
	ev.Reason = c.Reason
	return ev
}

// Publisher delivers sale events. Delivery is at most once; a failed publish
// never undoes the change it reports.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
