package model

import "time"

// SeatClass is the comfort class of a physical seat.
type SeatClass string

const (
	SeatClassStandard SeatClass = "standard"
	SeatClassVIP      SeatClass = "vip"
	SeatClassBed      SeatClass = "bed"
)

// Valid reports whether c is one of the known seat classes.
func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassStandard, SeatClassVIP, SeatClassBed:
		return true
	}
	return false
}

// Seat is the inventory template of a physical seat on a vehicle.  Its
// lifecycle is independent of any trip; one TripSeat is derived from it
// for every trip the vehicle is scheduled on.
//
// Fields:
//
//	ID         – primary key identifier.
//	VehicleID  – vehicle the seat is mounted in.
//	SeatNumber – printed seat label, e.g. "A1".
//	Class      – standard, vip or bed.
//	CreatedAt  – creation timestamp.
type Seat struct {
	ID         uint64    // seats.id
	VehicleID  uint64    // seats.vehicle_id
	SeatNumber string    // seats.seat_number
	Class      SeatClass // seats.seat_class
	CreatedAt  time.Time // seats.created_at
}
