package model

import "time"

// BookingGroup is the set of tickets reserved together.  It is not a
// stored entity: the tickets carry its ID.  A group is confirmed or
// released as a unit.
type BookingGroup struct {
	ID              string
	Tickets         []Ticket
	ExpiresAt       time.Time
	TotalPriceCents uint64
}

// TicketIDs returns the IDs of the group's tickets in order.
func (g *BookingGroup) TicketIDs() []string {
	ids := make([]string, 0, len(g.Tickets))
	for _, t := range g.Tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

// TripIDs returns the distinct trips covered by the group, outbound
// first.
func (g *BookingGroup) TripIDs() []uint64 {
	seen := make(map[uint64]struct{}, 2)
	ids := make([]uint64, 0, 2)
	for _, t := range g.Tickets {
		if _, ok := seen[t.TripID]; !ok {
			seen[t.TripID] = struct{}{}
			ids = append(ids, t.TripID)
		}
	}
	return ids
}

// SeatNumbers returns the seat labels of the group's tickets.
func (g *BookingGroup) SeatNumbers() []string {
	out := make([]string, 0, len(g.Tickets))
	for _, t := range g.Tickets {
		out = append(out, t.SeatNumber)
	}
	return out
}
