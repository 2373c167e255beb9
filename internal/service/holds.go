package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// holdCanceller ends a booked ticket's hold and gives its seat back.  The
// sweeper uses it for expired holds and the gateway for failed payments.
type holdCanceller struct {
	db      *sql.DB
	tickets *repository.TicketRepo
	ledger  *Ledger
	retry   repository.RetryPolicy
	log     *zap.Logger
}

type cancelOutcome int

const (
	// cancelSkipped: the ticket was no longer booked.
	cancelSkipped cancelOutcome = iota
	cancelDone
	// cancelSeatWasFree: the ticket was cancelled but its seat had
	// already been released, so the seat had no holder while the
	// ticket was still booked.
	cancelSeatWasFree
)

// cancel runs in its own transaction: ticket booked -> cancelled, then
// release the seat held by that ticket.  It reports cancelSkipped when
// the ticket was no longer booked, which means a concurrent confirm or
// cancel won.  A seat held by someone else rolls the cancel back and
// yields ErrIntegrityViolation.  A seat that was already available
// commits the cancel and reports cancelSeatWasFree.
func (h *holdCanceller) cancel(ctx context.Context, t model.Ticket, reason model.CancelReason, now time.Time) (cancelOutcome, error) {
	var outcome cancelOutcome
	err := repository.RunInTx(ctx, h.db, h.retry, func(tx *sql.Tx) error {
		outcome = cancelSkipped
		ok, err := h.tickets.CancelIfBooked(ctx, tx, t.ID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		out, err := h.ledger.Release(ctx, tx, t.TripSeatID, t.ID)
		if err != nil {
			return err
		}
		switch out {
		case NotHeldByTicket:
			return fmt.Errorf("%w: ticket %s does not hold trip seat %d", ErrIntegrityViolation, t.ID, t.TripSeatID)
		case AlreadyAvailable:
			outcome = cancelSeatWasFree
			return nil
		}
		outcome = cancelDone
		return nil
	})
	if err != nil {
		return cancelSkipped, err
	}
	if outcome == cancelSeatWasFree {
		h.log.Error("integrity violation: booked ticket's seat was already available",
			zap.String("ticket_id", t.ID),
			zap.Uint64("trip_seat_id", t.TripSeatID),
			zap.String("booking_group_id", t.BookingGroupID))
	}
	return outcome, nil
}
