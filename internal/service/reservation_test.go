package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
)

func TestReserveThenSecondReserveLoses(t *testing.T) {
	h := newHarness(t)
	ids := h.trip(1, 10, 2)
	a1, a2 := ids[0], ids[1]

	g := h.reserve(h.oneWay(10, a1, a2))
	if len(g.Tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(g.Tickets))
	}
	for _, tk := range g.Tickets {
		if tk.BookingGroupID != g.ID {
			t.Errorf("ticket %s group = %s, want %s", tk.ID, tk.BookingGroupID, g.ID)
		}
		if tk.Status != model.TicketBooked || tk.ExpiresAt == nil {
			t.Errorf("ticket %s = %s expires %v", tk.ID, tk.Status, tk.ExpiresAt)
		}
		if !tk.ExpiresAt.Equal(h.clock.Now().Add(testHold)) {
			t.Errorf("expires_at = %v, want now+hold", tk.ExpiresAt)
		}
	}
	h.assertHeldBy(a1, g.Tickets[0].ID)
	h.assertHeldBy(a2, g.Tickets[1].ID)
	if g.TotalPriceCents != 2000 {
		t.Errorf("total = %d, want 2000", g.TotalPriceCents)
	}

	_, err := h.coord.Reserve(context.Background(), h.oneWay(10, a1))
	var re *ReservationError
	if !errors.As(err, &re) || !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("second Reserve err = %v, want *ReservationError", err)
	}
	if re.SeatID != a1 {
		t.Fatalf("failing seat = %d, want %d", re.SeatID, a1)
	}
	h.assertHeldBy(a1, g.Tickets[0].ID)
	h.assertConsistent(10)

	if got := h.events.types(); len(got) != 1 || got[0] != queue.EventReserved {
		t.Fatalf("events = %v, want one booking.reserved", got)
	}
}

func TestReserveRoundTripIsAtomic(t *testing.T) {
	h := newHarness(t)
	out := h.trip(1, 10, 1)
	ret := h.trip(2, 20, 3)
	a1, b3 := out[0], ret[2]

	other := h.reserve(h.oneWay(20, b3))

	req := h.oneWay(10, a1)
	req.Return = &Leg{TripID: 20, TripSeatIDs: []uint64{b3}, PickupPoint: "Harbour", DropoffPoint: "Central"}
	_, err := h.coord.Reserve(context.Background(), req)
	if !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("Reserve err = %v, want ErrSeatUnavailable", err)
	}
	h.assertAvailable(a1)
	h.assertHeldBy(b3, other.Tickets[0].ID)

	var n int
	if err := h.db.QueryRow(`SELECT COUNT(*) FROM tickets`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("tickets in store = %d, want only the earlier one", n)
	}
}

// seatThief claims a seat behind the coordinator's back between its
// availability check and its transaction.
type seatThief struct {
	FlatPricing
	once   sync.Once
	ledger *Ledger
	seat   uint64
}

func (s *seatThief) Quote(ctx context.Context, seat model.TripSeat, tt model.TripType) (uint32, error) {
	s.once.Do(func() { _, _ = s.ledger.Claim(ctx, nil, s.seat, "thief") })
	return s.FlatPricing.Quote(ctx, seat, tt)
}

func TestReserveUndoesClaimsWhenLaterClaimFails(t *testing.T) {
	h := newHarness(t)
	ids := h.trip(1, 10, 3)
	thief := &seatThief{ledger: h.ledger, seat: ids[2]}
	coord := NewCoordinator(h.db, h.ledger, h.tickets, thief, h.events, h.clock, h.coord.log, testHold, testRetry)

	_, err := coord.Reserve(context.Background(), h.oneWay(10, ids[2], ids[0], ids[1]))
	var re *ReservationError
	if !errors.As(err, &re) || re.SeatID != ids[2] {
		t.Fatalf("Reserve err = %v, want seat %d unavailable", err, ids[2])
	}
	h.assertAvailable(ids[0], ids[1])
	h.assertHeldBy(ids[2], "thief")
}

func TestReserveRoundTripLinksTickets(t *testing.T) {
	h := newHarness(t)
	out := h.trip(1, 10, 2)
	ret := h.trip(2, 20, 2)

	req := h.oneWay(10, out[1], out[0])
	req.Return = &Leg{TripID: 20, TripSeatIDs: []uint64{ret[0], ret[1]}, PickupPoint: "Harbour", DropoffPoint: "Central"}
	g := h.reserve(req)
	if len(g.Tickets) != 4 {
		t.Fatalf("tickets = %d, want 4", len(g.Tickets))
	}

	// Outbound seat i pairs with return seat i in request order.
	pairs := map[uint64]uint64{out[1]: ret[0], out[0]: ret[1]}
	byID := map[string]model.Ticket{}
	for _, tk := range g.Tickets {
		byID[tk.ID] = tk
	}
	for _, tk := range g.Tickets {
		if tk.TripType != model.TripTypeRoundTrip {
			t.Errorf("ticket %s trip type = %s", tk.ID, tk.TripType)
		}
		if tk.LinkedTicketID == nil {
			t.Fatalf("ticket %s not linked", tk.ID)
		}
		partner := byID[*tk.LinkedTicketID]
		if partner.LinkedTicketID == nil || *partner.LinkedTicketID != tk.ID {
			t.Errorf("link of %s is not symmetric", tk.ID)
		}
		if !tk.IsReturnTrip && pairs[tk.TripSeatID] != partner.TripSeatID {
			t.Errorf("outbound seat %d paired with %d, want %d", tk.TripSeatID, partner.TripSeatID, pairs[tk.TripSeatID])
		}
	}

	stored := h.ticket(g.Tickets[0].ID)
	if stored.LinkedTicketID == nil || *stored.LinkedTicketID != *g.Tickets[0].LinkedTicketID {
		t.Fatalf("stored link = %v", stored.LinkedTicketID)
	}
	if got := g.TripIDs(); len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Fatalf("TripIDs = %v", got)
	}
	h.assertConsistent(10, 20)
}

func TestReserveRejectsInvalidRequests(t *testing.T) {
	h := newHarness(t)
	out := h.trip(1, 10, 2)
	ret := h.trip(2, 20, 2)

	cases := map[string]BookingRequest{
		"no seats":     h.oneWay(10),
		"duplicate":    h.oneWay(10, out[0], out[0]),
		"unknown seat": h.oneWay(10, 4242),
		"wrong trip":   h.oneWay(10, ret[0]),
		"unequal legs": func() BookingRequest {
			r := h.oneWay(10, out[0], out[1])
			r.Return = &Leg{TripID: 20, TripSeatIDs: []uint64{ret[0]}}
			return r
		}(),
		"same trip back": func() BookingRequest {
			r := h.oneWay(10, out[0])
			r.Return = &Leg{TripID: 10, TripSeatIDs: []uint64{out[1]}}
			return r
		}(),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := h.coord.Reserve(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
	h.assertAvailable(out[0], out[1], ret[0], ret[1])
}

func TestConcurrentReservesNeverDoubleBook(t *testing.T) {
	h := newHarness(t)
	ids := h.trip(1, 10, 3)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*model.BookingGroup
		losers  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate the request order; claims are ordered internally.
			req := h.oneWay(10, ids[0], ids[1], ids[2])
			if i%2 == 1 {
				req = h.oneWay(10, ids[2], ids[1], ids[0])
			}
			g, err := h.coord.Reserve(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, g)
			case errors.Is(err, ErrSeatUnavailable):
				losers++
			default:
				t.Errorf("Reserve: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 || losers != workers-1 {
		t.Fatalf("winners = %d, losers = %d; want 1 and %d", len(winners), losers, workers-1)
	}
	for _, tk := range winners[0].Tickets {
		h.assertHeldBy(tk.TripSeatID, tk.ID)
	}
	h.assertConsistent(10)
}

func TestLookup(t *testing.T) {
	h := newHarness(t)
	ids := h.trip(1, 10, 2)
	g := h.reserve(h.oneWay(10, ids[0], ids[1]))

	got, err := h.coord.Lookup(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got.Tickets) != 2 || !got.ExpiresAt.Equal(g.ExpiresAt) || got.TotalPriceCents != g.TotalPriceCents {
		t.Fatalf("Lookup = %+v, want %+v", got, g)
	}
	if _, err := h.coord.Lookup(context.Background(), "missing"); !errors.Is(err, ErrBookingGroupNotFound) {
		t.Fatalf("Lookup missing err = %v", err)
	}
}

func TestLookupForScopesToBooker(t *testing.T) {
	h := newHarness(t)
	ids := h.trip(1, 10, 1)
	req := h.oneWay(10, ids[0])
	req.BookedBy = "cust-1"
	g := h.reserve(req)
	ctx := context.Background()

	if tk := h.ticket(g.Tickets[0].ID); tk.BookedBy != "cust-1" {
		t.Fatalf("stored BookedBy = %q, want cust-1", tk.BookedBy)
	}
	if _, err := h.coord.LookupFor(ctx, g.ID, "cust-1"); err != nil {
		t.Fatalf("LookupFor owner: %v", err)
	}
	if _, err := h.coord.LookupFor(ctx, g.ID, "cust-2"); !errors.Is(err, ErrBookingGroupNotFound) {
		t.Fatalf("LookupFor other err = %v, want ErrBookingGroupNotFound", err)
	}
	if _, err := h.coord.LookupFor(ctx, "missing", "cust-1"); !errors.Is(err, ErrBookingGroupNotFound) {
		t.Fatalf("LookupFor missing err = %v", err)
	}
}
