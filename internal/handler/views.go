package handler

import (
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

type ticketView struct {
	ID             string     `json:"id"`
	TripID         uint64     `json:"trip_id"`
	TripSeatID     uint64     `json:"trip_seat_id"`
	SeatNumber     string     `json:"seat_number"`
	Status         string     `json:"status"`
	TripType       string     `json:"trip_type"`
	IsReturnTrip   bool       `json:"is_return_trip"`
	LinkedTicketID *string    `json:"linked_ticket_id,omitempty"`
	PriceCents     uint32     `json:"price_cents"`
	PickupPoint    string     `json:"pickup_point,omitempty"`
	DropoffPoint   string     `json:"dropoff_point,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	BookedAt       time.Time  `json:"booked_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CancelReason   string     `json:"cancel_reason,omitempty"`
}

type groupView struct {
	BookingGroupID  string       `json:"booking_group_id"`
	ExpiresAt       *time.Time   `json:"expires_at,omitempty"`
	TotalPriceCents uint64       `json:"total_price_cents"`
	Tickets         []ticketView `json:"tickets"`
}

type seatView struct {
	TripSeatID uint64 `json:"trip_seat_id"`
	SeatNumber string `json:"seat_number"`
	Class      string `json:"class"`
	Status     string `json:"status"`
}

func viewGroup(g *model.BookingGroup) groupView {
	out := groupView{
		BookingGroupID:  g.ID,
		TotalPriceCents: g.TotalPriceCents,
		Tickets:         make([]ticketView, 0, len(g.Tickets)),
	}
	if !g.ExpiresAt.IsZero() {
		exp := g.ExpiresAt
		out.ExpiresAt = &exp
	}
	for _, t := range g.Tickets {
		out.Tickets = append(out.Tickets, ticketView{
			ID:             t.ID,
			TripID:         t.TripID,
			TripSeatID:     t.TripSeatID,
			SeatNumber:     t.SeatNumber,
			Status:         string(t.Status),
			TripType:       string(t.TripType),
			IsReturnTrip:   t.IsReturnTrip,
			LinkedTicketID: t.LinkedTicketID,
			PriceCents:     t.PriceCents,
			PickupPoint:    t.PickupPoint,
			DropoffPoint:   t.DropoffPoint,
			ExpiresAt:      t.ExpiresAt,
			BookedAt:       t.BookedAt,
			ConfirmedAt:    t.ConfirmedAt,
			CancelledAt:    t.CancelledAt,
			CancelReason:   string(t.CancelReason),
		})
	}
	return out
}

// viewSeats hides holder ticket ids: the seat map is public.
func viewSeats(seats []model.TripSeat) []seatView {
	out := make([]seatView, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatView{
			TripSeatID: s.ID,
			SeatNumber: s.SeatNumber,
			Class:      string(s.Class),
			Status:     string(s.Status),
		})
	}
	return out
}
