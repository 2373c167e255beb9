package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Locker is a cross-process mutual exclusion used to keep sweeps on
// different replicas from overlapping.  TryLock never blocks; ok is
// false when another holder has the lock.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Cutoff              time.Time
	Scanned             int
	Cancelled           int
	Skipped             int // no longer booked when reached
	Failed              int
	IntegrityViolations int
	Duration            time.Duration
}

// SweeperConfig holds the sweeper's tunables.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	Retry     repository.RetryPolicy
}

// Sweeper reclaims seats from booked tickets whose hold has ended.  Each
// run is bounded: it reads expired tickets in pages up to a cutoff fixed
// when the run starts, and a run never overlaps another.
type Sweeper struct {
	tickets *repository.TicketRepo
	holds   *holdCanceller
	locker  Locker
	events  EventPublisher
	clock   clock.Clock
	log     *zap.Logger
	cfg     SweeperConfig

	running atomic.Bool

	// AfterRun, when set before Run starts, is called after every
	// scheduled sweep that completed.
	AfterRun func(SweepResult)
}

// NewSweeper constructs a Sweeper.  locker may be nil for a single
// replica deployment.
func NewSweeper(db *sql.DB, ledger *Ledger, tickets *repository.TicketRepo, locker Locker, events EventPublisher,
	clk clock.Clock, log *zap.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 200
	}
	log = log.Named("sweeper")
	return &Sweeper{
		tickets: tickets,
		holds:   &holdCanceller{db: db, tickets: tickets, ledger: ledger, retry: cfg.Retry, log: log},
		locker:  locker,
		events:  events,
		clock:   clk,
		log:     log,
		cfg:     cfg,
	}
}

// Run sweeps once per interval until ctx is done.  A tick that arrives
// while a sweep is in progress is dropped rather than queued.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.log.Info("sweeper started", zap.Duration("interval", s.cfg.Interval), zap.Int("batch_size", s.cfg.BatchSize))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
		}

		res, err := s.SweepOnce(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrSweepInProgress):
				s.log.Debug("sweep skipped", zap.Error(err))
			case ctx.Err() != nil:
			default:
				s.log.Error("sweep failed", zap.Error(err))
			}
		}

		select {
		case <-ticker.C:
		default:
		}
		if err == nil && s.AfterRun != nil {
			s.AfterRun(res)
		}
	}
}

// SweepOnce performs one sweep now.  It returns ErrSweepInProgress when
// a sweep is already running here or on another replica.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepResult{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx)
		switch {
		case err != nil:
			// Cancels and releases are conditional updates; overlapping
			// another replica's run is safe.
			s.log.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		case !ok:
			return SweepResult{}, ErrSweepInProgress
		default:
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					s.log.Warn("sweep unlock failed", zap.Error(err))
				}
			}()
		}
	}

	res := SweepResult{Cutoff: s.clock.Now()}
	started := s.clock.Now()
	cancelled := make(map[string][]model.Ticket)
	var groups []string

	var cursor repository.ExpiryCursor
	for {
		batch, err := s.tickets.ListExpiredBooked(ctx, nil, res.Cutoff, cursor, s.cfg.BatchSize)
		if err != nil {
			res.Duration = s.clock.Now().Sub(started)
			return res, fmt.Errorf("sweep: list expired: %w", err)
		}
		for _, t := range batch {
			res.Scanned++
			out, err := s.holds.cancel(ctx, t, model.CancelReasonExpired, s.clock.Now())
			switch {
			case errors.Is(err, ErrIntegrityViolation):
				res.IntegrityViolations++
				s.log.Error("integrity violation while releasing expired hold",
					zap.String("ticket_id", t.ID),
					zap.Uint64("trip_seat_id", t.TripSeatID),
					zap.String("booking_group_id", t.BookingGroupID),
					zap.Error(err))
			case err != nil:
				res.Failed++
				s.log.Warn("release expired hold failed", zap.String("ticket_id", t.ID), zap.Error(err))
				if ctx.Err() != nil {
					res.Duration = s.clock.Now().Sub(started)
					return res, ctx.Err()
				}
			case out == cancelSkipped:
				res.Skipped++
			default:
				if out == cancelSeatWasFree {
					res.IntegrityViolations++
				}
				res.Cancelled++
				if _, seen := cancelled[t.BookingGroupID]; !seen {
					groups = append(groups, t.BookingGroupID)
				}
				cancelled[t.BookingGroupID] = append(cancelled[t.BookingGroupID], t)
			}
		}
		if len(batch) < s.cfg.BatchSize {
			break
		}
		last := batch[len(batch)-1]
		cursor = repository.ExpiryCursor{ExpiresAt: *last.ExpiresAt, ID: last.ID}
	}

	for _, id := range groups {
		publish(ctx, s.events, s.log,
			queue.NewBookingEvent(queue.EventCancelled, groupOf(id, cancelled[id]), model.CancelReasonExpired, s.clock.Now()))
	}

	res.Duration = s.clock.Now().Sub(started)
	if res.Scanned > 0 {
		s.log.Info("sweep finished",
			zap.Time("cutoff", res.Cutoff),
			zap.Int("scanned", res.Scanned),
			zap.Int("cancelled", res.Cancelled),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("integrity_violations", res.IntegrityViolations),
			zap.Duration("duration", res.Duration))
	}
	return res, nil
}
