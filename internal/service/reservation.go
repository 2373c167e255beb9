package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Leg is one direction of a booking: seats on a single trip.
type Leg struct {
	TripID       uint64
	TripSeatIDs  []uint64
	PickupPoint  string
	DropoffPoint string
}

// BookingRequest asks for seats on an outbound trip and, for a round
// trip, an equal number of seats on a return trip.  Outbound seat i is
// paired with return seat i.  BookedBy is the authenticated caller; it
// is stored on every ticket and scopes LookupFor.
type BookingRequest struct {
	Customer model.Customer
	BookedBy string
	Outbound Leg
	Return   *Leg
}

func (r BookingRequest) tripType() model.TripType {
	if r.Return != nil {
		return model.TripTypeRoundTrip
	}
	return model.TripTypeOneWay
}

// validate rejects requests that could never succeed.
func (r BookingRequest) validate() error {
	if len(r.Outbound.TripSeatIDs) == 0 {
		return invalid("no seats requested")
	}
	if r.Return != nil {
		if len(r.Return.TripSeatIDs) != len(r.Outbound.TripSeatIDs) {
			return invalid("return leg has %d seats, outbound has %d",
				len(r.Return.TripSeatIDs), len(r.Outbound.TripSeatIDs))
		}
		if r.Return.TripID == r.Outbound.TripID {
			return invalid("return trip equals outbound trip %d", r.Outbound.TripID)
		}
	}
	seen := make(map[uint64]struct{})
	for _, leg := range r.legs() {
		for _, id := range leg.TripSeatIDs {
			if _, dup := seen[id]; dup {
				return invalid("seat %d requested twice", id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

func (r BookingRequest) legs() []Leg {
	if r.Return != nil {
		return []Leg{r.Outbound, *r.Return}
	}
	return []Leg{r.Outbound}
}

// Coordinator turns a booking request into a group of booked tickets,
// all or nothing.
type Coordinator struct {
	db      *sql.DB
	ledger  *Ledger
	tickets *repository.TicketRepo
	pricing PriceQuoter
	events  EventPublisher
	clock   clock.Clock
	log     *zap.Logger
	hold    time.Duration
	retry   repository.RetryPolicy
}

// NewCoordinator constructs a Coordinator.  hold is how long new tickets
// keep their seats before the sweeper may reclaim them.
func NewCoordinator(db *sql.DB, ledger *Ledger, tickets *repository.TicketRepo, pricing PriceQuoter,
	events EventPublisher, clk clock.Clock, log *zap.Logger, hold time.Duration, retry repository.RetryPolicy) *Coordinator {
	return &Coordinator{
		db:      db,
		ledger:  ledger,
		tickets: tickets,
		pricing: pricing,
		events:  events,
		clock:   clk,
		log:     log.Named("coordinator"),
		hold:    hold,
		retry:   retry,
	}
}

// Reserve claims every requested seat and writes one booked ticket per
// seat in a single transaction.  When any seat is taken nothing is kept
// and the error is a *ReservationError.
func (c *Coordinator) Reserve(ctx context.Context, req BookingRequest) (*model.BookingGroup, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var allIDs []uint64
	for _, leg := range req.legs() {
		allIDs = append(allIDs, leg.TripSeatIDs...)
	}
	seats, err := c.ledger.Load(ctx, nil, allIDs)
	if err != nil {
		return nil, fmt.Errorf("reserve: load seats: %w", err)
	}
	byID := make(map[uint64]model.TripSeat, len(seats))
	for _, s := range seats {
		byID[s.ID] = s
	}

	// Fail fast on seats that are visibly taken.  The claims below remain
	// the authoritative check.
	var taken []uint64
	for _, leg := range req.legs() {
		for _, id := range leg.TripSeatIDs {
			s, ok := byID[id]
			if !ok {
				return nil, invalid("trip seat %d does not exist", id)
			}
			if s.TripID != leg.TripID {
				return nil, invalid("trip seat %d belongs to trip %d, not %d", id, s.TripID, leg.TripID)
			}
			if s.Status != model.TripSeatAvailable {
				taken = append(taken, id)
			}
		}
	}
	if len(taken) > 0 {
		sort.Slice(taken, func(i, j int) bool { return taken[i] < taken[j] })
		return nil, &ReservationError{SeatID: taken[0], UnavailableSeatIDs: taken}
	}

	tickets, err := c.buildTickets(ctx, req, byID)
	if err != nil {
		return nil, err
	}

	// Claim in ascending seat id across both legs so that two requests
	// sharing seats always contend in the same order.
	order := make([]int, len(tickets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return tickets[order[a]].TripSeatID < tickets[order[b]].TripSeatID })

	err = repository.RunInTx(ctx, c.db, c.retry, func(tx *sql.Tx) error {
		for _, i := range order {
			t := tickets[i]
			out, err := c.ledger.Claim(ctx, tx, t.TripSeatID, t.ID)
			if err != nil {
				return err
			}
			if out == SeatUnavailable {
				return &ReservationError{SeatID: t.TripSeatID, UnavailableSeatIDs: []uint64{t.TripSeatID}}
			}
		}
		return c.tickets.InsertBulk(ctx, tx, tickets)
	})
	if err != nil {
		var re *ReservationError
		if errors.As(err, &re) {
			c.log.Info("reservation lost seat race", zap.Uint64("trip_seat_id", re.SeatID))
			return nil, re
		}
		return nil, fmt.Errorf("reserve: %w", err)
	}

	g := groupOf(tickets[0].BookingGroupID, tickets)
	c.log.Info("seats reserved",
		zap.String("booking_group_id", g.ID),
		zap.Int("tickets", len(tickets)),
		zap.Time("expires_at", g.ExpiresAt))
	publish(ctx, c.events, c.log, queue.NewBookingEvent(queue.EventReserved, g, model.CancelReasonNone, c.clock.Now()))
	return g, nil
}

// buildTickets creates the ticket rows for a request: outbound tickets
// first, then return tickets, each linked to its partner.
func (c *Coordinator) buildTickets(ctx context.Context, req BookingRequest, seats map[uint64]model.TripSeat) ([]model.Ticket, error) {
	now := c.clock.Now()
	expires := now.Add(c.hold)
	groupID := uuid.NewString()
	tripType := req.tripType()

	var tickets []model.Ticket
	for legIdx, leg := range req.legs() {
		for _, id := range leg.TripSeatIDs {
			seat := seats[id]
			price, err := c.pricing.Quote(ctx, seat, tripType)
			if err != nil {
				return nil, fmt.Errorf("reserve: quote seat %d: %w", id, err)
			}
			exp := expires
			tickets = append(tickets, model.Ticket{
				ID:             uuid.NewString(),
				TripSeatID:     seat.ID,
				TripID:         seat.TripID,
				SeatNumber:     seat.SeatNumber,
				BookingGroupID: groupID,
				Status:         model.TicketBooked,
				ExpiresAt:      &exp,
				TripType:       tripType,
				IsReturnTrip:   legIdx == 1,
				PriceCents:     price,
				Customer:       req.Customer,
				BookedBy:       req.BookedBy,
				PickupPoint:    leg.PickupPoint,
				DropoffPoint:   leg.DropoffPoint,
				BookedAt:       now,
			})
		}
	}
	if req.Return != nil {
		n := len(req.Outbound.TripSeatIDs)
		for i := 0; i < n; i++ {
			out, ret := &tickets[i], &tickets[n+i]
			outID, retID := out.ID, ret.ID
			out.LinkedTicketID = &retID
			ret.LinkedTicketID = &outID
		}
	}
	return tickets, nil
}

// Lookup returns the tickets of a booking group.
func (c *Coordinator) Lookup(ctx context.Context, groupID string) (*model.BookingGroup, error) {
	tickets, err := c.tickets.ListByGroup(ctx, nil, groupID)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", groupID, err)
	}
	if len(tickets) == 0 {
		return nil, ErrBookingGroupNotFound
	}
	return groupOf(groupID, tickets), nil
}

// LookupFor is Lookup restricted to groups reserved by bookedBy.  A group
// reserved by someone else is reported as ErrBookingGroupNotFound so that
// its existence is not disclosed.
func (c *Coordinator) LookupFor(ctx context.Context, groupID, bookedBy string) (*model.BookingGroup, error) {
	g, err := c.Lookup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, t := range g.Tickets {
		if t.BookedBy != bookedBy {
			return nil, ErrBookingGroupNotFound
		}
	}
	return g, nil
}
