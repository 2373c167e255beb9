package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/bus-seat-reservation/internal/clock"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/testutil"
)

const testHold = 5 * time.Minute

var testRetry = repository.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type harness struct {
	t         *testing.T
	db        *sql.DB
	clock     *clock.FakeClock
	seats     *repository.TripSeatRepo
	tickets   *repository.TicketRepo
	ledger    *Ledger
	coord     *Coordinator
	gateway   *Gateway
	sweeper   *Sweeper
	inventory *Inventory
	events    *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.OpenDB(t)
	h := &harness{
		t:       t,
		db:      db,
		clock:   clock.Fake(testutil.Epoch),
		seats:   repository.NewTripSeatRepo(db),
		tickets: repository.NewTicketRepo(db),
		events:  &recordingPublisher{},
	}
	log := zaptest.NewLogger(t)
	h.ledger = NewLedger(h.seats, h.clock, log, testRetry)
	pricing := FlatPricing{Standard: 1000, VIP: 2000, Bed: 3000}
	h.coord = NewCoordinator(db, h.ledger, h.tickets, pricing, h.events, h.clock, log, testHold, testRetry)
	h.gateway = NewGateway(db, h.ledger, h.tickets, h.events, h.clock, log, testRetry)
	h.sweeper = NewSweeper(db, h.ledger, h.tickets, nil, h.events, h.clock, log,
		SweeperConfig{Interval: time.Minute, BatchSize: 2, Retry: testRetry})
	h.inventory = NewInventory(db, repository.NewSeatRepo(db), h.seats, h.clock, log, testRetry)
	return h
}

// trip seeds a trip with n seats and returns their ids.
func (h *harness) trip(vehicleID, tripID uint64, n int) []uint64 {
	h.t.Helper()
	return testutil.SeedTrip(h.t, h.db, vehicleID, tripID, n)
}

func (h *harness) oneWay(tripID uint64, seats ...uint64) BookingRequest {
	return BookingRequest{
		Customer: model.Customer{Name: "Ada", Phone: "555-0100", Email: "ada@example.com"},
		Outbound: Leg{TripID: tripID, TripSeatIDs: seats, PickupPoint: "Central", DropoffPoint: "Harbour"},
	}
}

func (h *harness) reserve(req BookingRequest) *model.BookingGroup {
	h.t.Helper()
	g, err := h.coord.Reserve(context.Background(), req)
	if err != nil {
		h.t.Fatalf("Reserve: %v", err)
	}
	return g
}

func (h *harness) seat(id uint64) *model.TripSeat {
	h.t.Helper()
	ts, err := h.seats.GetByID(context.Background(), nil, id)
	if err != nil {
		h.t.Fatalf("GetByID(%d): %v", id, err)
	}
	return ts
}

func (h *harness) ticket(id string) *model.Ticket {
	h.t.Helper()
	tk, err := h.tickets.GetByID(context.Background(), nil, id)
	if err != nil {
		h.t.Fatalf("GetByID(%s): %v", id, err)
	}
	return tk
}

func (h *harness) assertAvailable(ids ...uint64) {
	h.t.Helper()
	for _, id := range ids {
		if ts := h.seat(id); ts.Status != model.TripSeatAvailable || ts.TicketID != nil {
			h.t.Errorf("seat %d = %s (holder %v), want available", id, ts.Status, ts.TicketID)
		}
	}
}

func (h *harness) assertHeldBy(id uint64, ticketID string) {
	h.t.Helper()
	ts := h.seat(id)
	if ts.Status != model.TripSeatBooked || ts.TicketID == nil || *ts.TicketID != ticketID {
		h.t.Errorf("seat %d = %s (holder %v), want booked by %s", id, ts.Status, ts.TicketID, ticketID)
	}
}

func (h *harness) assertConsistent(tripIDs ...uint64) {
	h.t.Helper()
	checker := NewIntegrityChecker(repository.NewIntegrityRepo(h.db), zaptest.NewLogger(h.t))
	for _, trip := range tripIDs {
		issues, err := checker.Check(context.Background(), trip)
		if err != nil {
			h.t.Fatalf("Check(%d): %v", trip, err)
		}
		if len(issues) != 0 {
			h.t.Errorf("trip %d integrity issues: %+v", trip, issues)
		}
	}
}
