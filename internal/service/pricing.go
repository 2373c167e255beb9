package service

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// PriceQuoter supplies the price recorded on each new ticket.
type PriceQuoter interface {
	Quote(ctx context.Context, seat model.TripSeat, tripType model.TripType) (uint32, error)
}

// FlatPricing charges a fixed amount per seat class.
type FlatPricing struct {
	Standard uint32
	VIP      uint32
	Bed      uint32
}

// NewFlatPricing reads the price table from the booking config.
func NewFlatPricing(c config.BookingConfig) FlatPricing {
	return FlatPricing{Standard: c.PriceStandardCents, VIP: c.PriceVIPCents, Bed: c.PriceBedCents}
}

func (p FlatPricing) Quote(_ context.Context, seat model.TripSeat, _ model.TripType) (uint32, error) {
	switch seat.Class {
	case model.SeatClassVIP:
		return p.VIP, nil
	case model.SeatClassBed:
		return p.Bed, nil
	}
	return p.Standard, nil
}
