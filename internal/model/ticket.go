package model

import "time"

// TicketStatus is the state of a single passenger's reservation.
type TicketStatus string

const (
	// TicketBooked tickets hold their seat until ExpiresAt.
	TicketBooked TicketStatus = "booked"
	// TicketConfirmed tickets are paid. Terminal.
	TicketConfirmed TicketStatus = "confirmed"
	// TicketCancelled tickets expired or failed payment. Terminal.
	TicketCancelled TicketStatus = "cancelled"
)

// TripType tells whether a ticket was bought alone or as part of a
// round trip.
type TripType string

const (
	TripTypeOneWay    TripType = "one_way"
	TripTypeRoundTrip TripType = "round_trip"
)

// CancelReason records why a ticket left the booked state without
// being confirmed.
type CancelReason string

const (
	CancelReasonNone          CancelReason = ""
	CancelReasonExpired       CancelReason = "expired"
	CancelReasonPaymentFailed CancelReason = "payment_failed"
)

// Customer is the passenger contact captured at booking time.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// Ticket is one passenger's reservation of one TripSeat.  ExpiresAt is
// set while the ticket is booked and cleared once it is confirmed or
// cancelled.  Tickets bought together share BookingGroupID; on a round
// trip each outbound ticket links to its return ticket and back.
//
// Fields:
//
//	ID             – UUID primary key.
//	TripSeatID     – seat held by the ticket.
//	TripID         – trip of that seat.
//	SeatNumber     – denormalized seat label.
//	BookingGroupID – UUID shared by tickets reserved together.
//	Status         – booked, confirmed or cancelled.
//	ExpiresAt      – hold deadline (nil unless booked).
//	TripType       – one_way or round_trip.
//	IsReturnTrip   – true for the return leg of a round trip.
//	LinkedTicketID – paired outbound/return ticket (nil for one-way).
//	PriceCents     – price recorded for this ticket.
//	Customer       – passenger contact.
//	BookedBy       – token subject of the caller that reserved it.
//	PickupPoint    – boarding stop.
//	DropoffPoint   – alighting stop.
//	BookedAt       – when the hold was created.
//	ConfirmedAt    – when payment was confirmed.
//	CancelledAt    – when the ticket was cancelled.
//	CancelReason   – expired or payment_failed.
type Ticket struct {
	ID             string       // tickets.id
	TripSeatID     uint64       // tickets.trip_seat_id
	TripID         uint64       // tickets.trip_id
	SeatNumber     string       // tickets.seat_number
	BookingGroupID string       // tickets.booking_group_id
	Status         TicketStatus // tickets.status
	ExpiresAt      *time.Time   // tickets.expires_at (nullable)
	TripType       TripType     // tickets.trip_type
	IsReturnTrip   bool         // tickets.is_return_trip
	LinkedTicketID *string      // tickets.linked_ticket_id (nullable)
	PriceCents     uint32       // tickets.price_cents
	Customer       Customer     // tickets.customer_name, customer_phone, customer_email
	BookedBy       string       // tickets.booked_by
	PickupPoint    string       // tickets.pickup_point
	DropoffPoint   string       // tickets.dropoff_point
	BookedAt       time.Time    // tickets.booked_at
	ConfirmedAt    *time.Time   // tickets.confirmed_at (nullable)
	CancelledAt    *time.Time   // tickets.cancelled_at (nullable)
	CancelReason   CancelReason // tickets.cancel_reason
}
