// Package repository holds the SQL data access for seats, trip seats and
// tickets.  Status columns are only ever changed through conditional
// UPDATE statements whose WHERE clause names the expected prior value;
// callers learn whether the transition happened from the affected-row
// count, never by reading first and writing blindly.
package repository

import "errors"

// ErrSeatNotFound is returned when a vehicle seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrTripSeatNotFound is returned when a trip seat does not exist.
var ErrTripSeatNotFound = errors.New("trip seat not found")

// ErrTicketNotFound is returned when a ticket does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrConflict is returned when an insert cannot proceed because of
// existing rows, such as scheduling seats for a trip twice.  Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
