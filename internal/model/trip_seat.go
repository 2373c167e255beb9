package model

import "time"

// TripSeatStatus is the reservation state of a seat on one trip.
type TripSeatStatus string

const (
	// TripSeatAvailable seats can be claimed by a booking.
	TripSeatAvailable TripSeatStatus = "available"
	// TripSeatBooked seats are held or sold; TicketID names the holder.
	TripSeatBooked TripSeatStatus = "booked"
	// TripSeatLocked seats are withdrawn by an operator (maintenance).
	// A lock is not a booking hold and never expires.
	TripSeatLocked TripSeatStatus = "locked"
)

// TripSeat is the reservable unit: one Seat on one scheduled Trip.  Rows
// are created in bulk when the trip is scheduled.  Status only changes
// through the seat ledger's conditional updates, and TicketID is non-nil
// exactly when Status is booked.
//
// Fields:
//
//	ID         – primary key identifier.
//	TripID     – trip the seat belongs to.
//	SeatID     – inventory seat it was derived from.
//	SeatNumber – denormalized seat label for display.
//	Class      – denormalized seat class.
//	Status     – available, booked or locked.
//	TicketID   – ticket currently holding the seat (nil unless booked).
//	Version    – incremented by every status transition.
//	UpdatedAt  – time of the last transition.
type TripSeat struct {
	ID         uint64         // trip_seats.id
	TripID     uint64         // trip_seats.trip_id
	SeatID     uint64         // trip_seats.seat_id
	SeatNumber string         // trip_seats.seat_number
	Class      SeatClass      // trip_seats.seat_class
	Status     TripSeatStatus // trip_seats.status
	TicketID   *string        // trip_seats.ticket_id (nullable)
	Version    uint32         // trip_seats.version
	UpdatedAt  time.Time      // trip_seats.updated_at
}
