package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// errRollback aborts a transaction whose outcome is already decided.
var errRollback = errors.New("rollback")

// Gateway applies payment results to booking groups.
type Gateway struct {
	db      *sql.DB
	tickets *repository.TicketRepo
	holds   *holdCanceller
	events  EventPublisher
	clock   clock.Clock
	log     *zap.Logger
	retry   repository.RetryPolicy
}

// NewGateway constructs a Gateway.
func NewGateway(db *sql.DB, ledger *Ledger, tickets *repository.TicketRepo, events EventPublisher,
	clk clock.Clock, log *zap.Logger, retry repository.RetryPolicy) *Gateway {
	log = log.Named("gateway")
	return &Gateway{
		db:      db,
		tickets: tickets,
		holds:   &holdCanceller{db: db, tickets: tickets, ledger: ledger, retry: retry, log: log},
		events:  events,
		clock:   clk,
		log:     log,
		retry:   retry,
	}
}

// Confirm marks every ticket of the group confirmed, or none of them.
// It succeeds only while every ticket is still booked and its hold has
// not ended; a hold ending exactly now still counts.
func (g *Gateway) Confirm(ctx context.Context, groupID string) (ConfirmOutcome, error) {
	now := g.clock.Now()
	var (
		outcome ConfirmOutcome
		tickets []model.Ticket
	)
	err := repository.RunInTx(ctx, g.db, g.retry, func(tx *sql.Tx) error {
		var err error
		tickets, err = g.tickets.ListByGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return ErrBookingGroupNotFound
		}
		n, err := g.tickets.ConfirmGroup(ctx, tx, groupID, now)
		if err != nil {
			return err
		}
		if n == int64(len(tickets)) {
			outcome = Confirmed
			return nil
		}
		outcome = AlreadyExpired
		if allInStatus(tickets, model.TicketConfirmed) {
			outcome = AlreadyConfirmed
		}
		return errRollback
	})
	switch {
	case errors.Is(err, errRollback):
		g.log.Info("confirm rejected", zap.String("booking_group_id", groupID), zap.Stringer("outcome", outcome))
		return outcome, nil
	case errors.Is(err, ErrBookingGroupNotFound):
		return 0, err
	case err != nil:
		return 0, fmt.Errorf("confirm %s: %w", groupID, err)
	}

	grp := groupOf(groupID, tickets)
	g.log.Info("booking confirmed", zap.String("booking_group_id", groupID), zap.Int("tickets", len(tickets)))
	publish(ctx, g.events, g.log, queue.NewBookingEvent(queue.EventConfirmed, grp, model.CancelReasonNone, now))
	return Confirmed, nil
}

// Fail cancels every still-booked ticket of the group with reason
// payment_failed and releases its seat.  It returns how many tickets it
// cancelled.  Tickets that are already confirmed or cancelled are left
// alone.
func (g *Gateway) Fail(ctx context.Context, groupID string) (int, error) {
	tickets, err := g.tickets.ListByGroup(ctx, nil, groupID)
	if err != nil {
		return 0, fmt.Errorf("fail %s: %w", groupID, err)
	}
	if len(tickets) == 0 {
		return 0, ErrBookingGroupNotFound
	}

	now := g.clock.Now()
	var (
		cancelled []model.Ticket
		errs      []error
	)
	for _, t := range tickets {
		if t.Status != model.TicketBooked {
			continue
		}
		out, err := g.holds.cancel(ctx, t, model.CancelReasonPaymentFailed, now)
		if err != nil {
			if errors.Is(err, ErrIntegrityViolation) {
				g.log.Error("integrity violation while failing booking",
					zap.String("booking_group_id", groupID), zap.String("ticket_id", t.ID), zap.Error(err))
			}
			errs = append(errs, err)
			continue
		}
		if out != cancelSkipped {
			cancelled = append(cancelled, t)
		}
	}

	if len(cancelled) > 0 {
		g.log.Info("booking failed", zap.String("booking_group_id", groupID), zap.Int("cancelled", len(cancelled)))
		publish(ctx, g.events, g.log,
			queue.NewBookingEvent(queue.EventCancelled, groupOf(groupID, cancelled), model.CancelReasonPaymentFailed, now))
	}
	if len(errs) > 0 {
		return len(cancelled), fmt.Errorf("fail %s: %w", groupID, errors.Join(errs...))
	}
	return len(cancelled), nil
}

func allInStatus(tickets []model.Ticket, s model.TicketStatus) bool {
	for _, t := range tickets {
		if t.Status != s {
			return false
		}
	}
	return len(tickets) > 0
}
