// Package queue carries booking events: the payload type, publishers for
// a RabbitMQ topic exchange or a Kafka topic, and the audit consumer that
// appends every RabbitMQ event to a log file.
package queue

import (
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// EventType doubles as the routing key on the booking exchange.
type EventType string

const (
	EventReserved  EventType = "booking.reserved"
	EventConfirmed EventType = "booking.confirmed"
	EventCancelled EventType = "booking.cancelled"
)

// BookingEvent describes a state change of a booking group.  It carries
// enough for consumers to log or notify without querying the database.
type BookingEvent struct {
	Type            EventType  `json:"type"`
	BookingGroupID  string     `json:"booking_group_id"`
	TicketIDs       []string   `json:"ticket_ids"`
	TripIDs         []uint64   `json:"trip_ids"`
	SeatNumbers     []string   `json:"seats"`
	TotalPriceCents uint64     `json:"total_price_cents"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// NewBookingEvent builds an event for the tickets in g.
func NewBookingEvent(t EventType, g *model.BookingGroup, reason model.CancelReason, at time.Time) BookingEvent {
	ev := BookingEvent{
		Type:            t,
		BookingGroupID:  g.ID,
		TicketIDs:       g.TicketIDs(),
		TripIDs:         g.TripIDs(),
		SeatNumbers:     g.SeatNumbers(),
		TotalPriceCents: g.TotalPriceCents,
		Reason:          string(reason),
		OccurredAt:      at.UTC(),
	}
	if t == EventReserved && !g.ExpiresAt.IsZero() {
		exp := g.ExpiresAt.UTC()
		ev.ExpiresAt = &exp
	}
	return ev
}
