package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSeatUnavailable is matched by every *ReservationError.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrInvalidRequest marks a booking or inventory request that can
	// never succeed as submitted.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTripNotFound is returned when a trip has no scheduled seats.
	ErrTripNotFound = errors.New("trip not found")
	// ErrBookingGroupNotFound is returned for an unknown booking group.
	ErrBookingGroupNotFound = errors.New("booking group not found")
	// ErrIntegrityViolation means seats and tickets disagree and an
	// operator has to reconcile them.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrSweepInProgress is returned when a sweep is already running in
	// this process or on another replica.
	ErrSweepInProgress = errors.New("sweep already in progress")
	// ErrSeatHeld is returned when an administrative lock targets a seat
	// held by a booking.
	ErrSeatHeld = errors.New("seat is held by a booking")
)

// ReservationError reports a booking that lost the race for at least
// one seat.  SeatID is the first seat that could not be claimed, in
// claim order; UnavailableSeatIDs lists every seat known to be taken.
type ReservationError struct {
	SeatID             uint64
	UnavailableSeatIDs []uint64
}

func (e *ReservationError) Error() string {
	ids := make([]string, len(e.UnavailableSeatIDs))
	for i, id := range e.UnavailableSeatIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	return fmt.Sprintf("seat %d unavailable (unavailable: %s)", e.SeatID, strings.Join(ids, ","))
}

func (e *ReservationError) Unwrap() error { return ErrSeatUnavailable }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
