package model

// IntegrityKind names a way in which seats and tickets can disagree.
type IntegrityKind string

const (
	// IntegrityOrphanedSeat is a booked seat whose holder ticket is
	// missing, cancelled or points at a different seat.
	IntegrityOrphanedSeat IntegrityKind = "orphaned_seat"
	// IntegrityStrayHolder is a seat that is not booked but still names
	// a ticket.
	IntegrityStrayHolder IntegrityKind = "stray_holder"
	// IntegrityUnheldTicket is a live ticket whose seat does not name it
	// as the holder.
	IntegrityUnheldTicket IntegrityKind = "unheld_ticket"
	// IntegrityExpiryMismatch is a ticket whose expires_at disagrees with
	// its status.
	IntegrityExpiryMismatch IntegrityKind = "expiry_mismatch"
)

// IntegrityIssue is one inconsistency found by an integrity scan.
type IntegrityIssue struct {
	Kind       IntegrityKind `json:"kind"`
	TripSeatID uint64        `json:"trip_seat_id,omitempty"`
	TicketID   string        `json:"ticket_id,omitempty"`
}
