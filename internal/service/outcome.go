package service

// ClaimOutcome is the result of a seat claim.
type ClaimOutcome int

const (
	Claimed ClaimOutcome = iota + 1
	SeatUnavailable
)

func (o ClaimOutcome) String() string {
	switch o {
	case Claimed:
		return "claimed"
	case SeatUnavailable:
		return "seat_unavailable"
	}
	return "unknown"
}

// ReleaseOutcome is the result of releasing a seat on behalf of a
// ticket.
type ReleaseOutcome int

const (
	Released ReleaseOutcome = iota + 1
	// AlreadyAvailable means there was nothing to release.
	AlreadyAvailable
	// NotHeldByTicket means the seat is held by someone else or locked.
	NotHeldByTicket
)

func (o ReleaseOutcome) String() string {
	switch o {
	case Released:
		return "released"
	case AlreadyAvailable:
		return "already_available"
	case NotHeldByTicket:
		return "not_held_by_ticket"
	}
	return "unknown"
}

// ConfirmOutcome is the result of confirming a booking group.
type ConfirmOutcome int

const (
	Confirmed ConfirmOutcome = iota + 1
	AlreadyExpired
	AlreadyConfirmed
)

func (o ConfirmOutcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case AlreadyExpired:
		return "already_expired"
	case AlreadyConfirmed:
		return "already_confirmed"
	}
	return "unknown"
}
