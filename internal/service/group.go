package service

import (
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// groupOf assembles a booking group view from its tickets.  ExpiresAt
// is the earliest hold deadline among still-booked tickets.
func groupOf(id string, tickets []model.Ticket) *model.BookingGroup {
	g := &model.BookingGroup{ID: id, Tickets: tickets}
	var earliest time.Time
	for _, t := range tickets {
		g.TotalPriceCents += uint64(t.PriceCents)
		if t.ExpiresAt != nil && (earliest.IsZero() || t.ExpiresAt.Before(earliest)) {
			earliest = *t.ExpiresAt
		}
	}
	g.ExpiresAt = earliest
	return g
}
