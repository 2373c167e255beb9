// Package service holds the seat reservation core: the seat ledger, the
// reservation coordinator, the expiration sweeper and the confirmation
// gateway, plus trip inventory and integrity checks.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Ledger is the only writer of trip seat status.  Claim and Release take
// the caller's transaction so that seat changes commit or roll back with
// the ticket changes they belong to.
type Ledger struct {
	seats *repository.TripSeatRepo
	clock clock.Clock
	log   *zap.Logger
	retry repository.RetryPolicy
}

// NewLedger constructs a Ledger.
func NewLedger(seats *repository.TripSeatRepo, clk clock.Clock, log *zap.Logger, retry repository.RetryPolicy) *Ledger {
	return &Ledger{seats: seats, clock: clk, log: log.Named("ledger"), retry: retry}
}

// Claim marks an available seat as booked by ticketID.  Losing the race
// is an outcome, not an error; an unknown seat is an error.
func (l *Ledger) Claim(ctx context.Context, q repository.Querier, tripSeatID uint64, ticketID string) (ClaimOutcome, error) {
	ok, err := l.seats.Transition(ctx, q, tripSeatID, model.TripSeatAvailable, model.TripSeatBooked, nil, &ticketID, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("claim seat %d: %w", tripSeatID, err)
	}
	if ok {
		return Claimed, nil
	}
	if _, err := l.seats.GetByID(ctx, q, tripSeatID); err != nil {
		return 0, fmt.Errorf("claim seat %d: %w", tripSeatID, err)
	}
	return SeatUnavailable, nil
}

// Release returns a seat held by expectedTicketID to available.
// Releasing a seat that is already available succeeds without change.
func (l *Ledger) Release(ctx context.Context, q repository.Querier, tripSeatID uint64, expectedTicketID string) (ReleaseOutcome, error) {
	ok, err := l.seats.Transition(ctx, q, tripSeatID, model.TripSeatBooked, model.TripSeatAvailable, &expectedTicketID, nil, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("release seat %d: %w", tripSeatID, err)
	}
	if ok {
		return Released, nil
	}
	ts, err := l.seats.GetByID(ctx, q, tripSeatID)
	if err != nil {
		return 0, fmt.Errorf("release seat %d: %w", tripSeatID, err)
	}
	if ts.Status == model.TripSeatAvailable {
		return AlreadyAvailable, nil
	}
	return NotHeldByTicket, nil
}

// LockPermanently withdraws an available seat from sale.  Locking a
// locked seat is a no-op; a booked seat yields ErrSeatHeld.
func (l *Ledger) LockPermanently(ctx context.Context, tripSeatID uint64) error {
	return l.adminTransition(ctx, tripSeatID, model.TripSeatAvailable, model.TripSeatLocked)
}

// UnlockPermanently returns a locked seat to sale.  Unlocking an
// available seat is a no-op; a booked seat yields ErrSeatHeld.
func (l *Ledger) UnlockPermanently(ctx context.Context, tripSeatID uint64) error {
	return l.adminTransition(ctx, tripSeatID, model.TripSeatLocked, model.TripSeatAvailable)
}

func (l *Ledger) adminTransition(ctx context.Context, id uint64, from, to model.TripSeatStatus) error {
	return repository.Retry(ctx, l.retry, func() error {
		ok, err := l.seats.Transition(ctx, nil, id, from, to, nil, nil, l.clock.Now())
		if err != nil {
			return err
		}
		if ok {
			l.log.Info("seat status changed",
				zap.Uint64("trip_seat_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
			return nil
		}
		ts, err := l.seats.GetByID(ctx, nil, id)
		if err != nil {
			return err
		}
		switch ts.Status {
		case to:
			return nil
		case model.TripSeatBooked:
			return ErrSeatHeld
		}
		return fmt.Errorf("seat %d in unexpected status %q", id, ts.Status)
	})
}

// Load returns the requested seats in ascending id order.
func (l *Ledger) Load(ctx context.Context, q repository.Querier, ids []uint64) ([]model.TripSeat, error) {
	return l.seats.ListByIDs(ctx, q, ids)
}

// SeatMap returns every seat of a trip with its current status.
func (l *Ledger) SeatMap(ctx context.Context, tripID uint64) ([]model.TripSeat, error) {
	seats, err := l.seats.ListByTrip(ctx, nil, tripID, "")
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, ErrTripNotFound
	}
	return seats, nil
}

// AvailableSeats returns the seats of a trip that can be claimed now.
func (l *Ledger) AvailableSeats(ctx context.Context, tripID uint64) ([]model.TripSeat, error) {
	n, err := l.seats.CountByTrip(ctx, nil, tripID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrTripNotFound
	}
	seats, err := l.seats.ListByTrip(ctx, nil, tripID, model.TripSeatAvailable)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []model.TripSeat{}
	}
	return seats, nil
}
