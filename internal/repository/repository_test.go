package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/testutil"
)

func strptr(s string) *string { return &s }

func newTicket(id, group string, seat uint64, expires time.Time) model.Ticket {
	return model.Ticket{
		ID:             id,
		TripSeatID:     seat,
		TripID:         1,
		SeatNumber:     fmt.Sprint(seat),
		BookingGroupID: group,
		Status:         model.TicketBooked,
		ExpiresAt:      &expires,
		TripType:       model.TripTypeOneWay,
		PriceCents:     1500,
		Customer:       model.Customer{Name: "A", Phone: "1", Email: "a@example.com"},
		PickupPoint:    "North",
		DropoffPoint:   "South",
		BookedAt:       testutil.Epoch,
	}
}

func TestTransitionIsConditional(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 2)
	repo := NewTripSeatRepo(db)
	ctx := context.Background()
	now := testutil.Epoch

	ok, err := repo.Transition(ctx, nil, ids[0], model.TripSeatAvailable, model.TripSeatBooked, nil, strptr("t1"), now)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v; want true, nil", ok, err)
	}
	ok, err = repo.Transition(ctx, nil, ids[0], model.TripSeatAvailable, model.TripSeatBooked, nil, strptr("t2"), now)
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v; want false, nil", ok, err)
	}

	// Releasing on behalf of a ticket that does not hold the seat must
	// not match.
	ok, err = repo.Transition(ctx, nil, ids[0], model.TripSeatBooked, model.TripSeatAvailable, strptr("t2"), nil, now)
	if err != nil || ok {
		t.Fatalf("release by non-holder = %v, %v; want false, nil", ok, err)
	}

	ts, err := repo.GetByID(ctx, nil, ids[0])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if ts.Status != model.TripSeatBooked || ts.TicketID == nil || *ts.TicketID != "t1" {
		t.Fatalf("seat = %+v; want booked by t1", ts)
	}
	if ts.Version != 1 {
		t.Fatalf("version = %d, want 1", ts.Version)
	}

	ok, err = repo.Transition(ctx, nil, ids[0], model.TripSeatBooked, model.TripSeatAvailable, strptr("t1"), nil, now)
	if err != nil || !ok {
		t.Fatalf("release by holder = %v, %v; want true, nil", ok, err)
	}
	ts, _ = repo.GetByID(ctx, nil, ids[0])
	if ts.Status != model.TripSeatAvailable || ts.TicketID != nil {
		t.Fatalf("seat after release = %+v", ts)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := testutil.OpenDB(t)
	if _, err := NewTripSeatRepo(db).GetByID(context.Background(), nil, 42); !errors.Is(err, ErrTripSeatNotFound) {
		t.Fatalf("err = %v, want ErrTripSeatNotFound", err)
	}
	if _, err := NewTicketRepo(db).GetByID(context.Background(), nil, "nope"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("err = %v, want ErrTicketNotFound", err)
	}
}

func TestListByIDsOrdersAscending(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 4)
	seats, err := NewTripSeatRepo(db).ListByIDs(context.Background(), nil, []uint64{ids[3], ids[0], ids[2], 9999})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(seats) != 3 {
		t.Fatalf("got %d seats, want 3", len(seats))
	}
	for i := 1; i < len(seats); i++ {
		if seats[i-1].ID >= seats[i].ID {
			t.Fatalf("seats not ascending: %d then %d", seats[i-1].ID, seats[i].ID)
		}
	}
}

func TestCreateFromVehicleRejectsSecondSchedule(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.SeedTrip(t, db, 7, 70, 3)
	repo := NewTripSeatRepo(db)
	if _, err := repo.CreateFromVehicle(context.Background(), nil, 70, 7, testutil.Epoch); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	n, err := repo.CreateFromVehicle(context.Background(), nil, 71, 7, testutil.Epoch)
	if err != nil || n != 3 {
		t.Fatalf("schedule second trip = %d, %v; want 3, nil", n, err)
	}
}

func TestListExpiredBookedPagesStrictly(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 5)
	repo := NewTicketRepo(db)
	ctx := context.Background()
	cutoff := testutil.Epoch.Add(10 * time.Minute)

	tickets := []model.Ticket{
		newTicket("a", "g1", ids[0], cutoff.Add(-3*time.Minute)),
		newTicket("b", "g1", ids[1], cutoff.Add(-3*time.Minute)),
		newTicket("c", "g2", ids[2], cutoff.Add(-time.Minute)),
		newTicket("d", "g3", ids[3], cutoff), // not strictly before cutoff
		newTicket("e", "g4", ids[4], cutoff.Add(time.Minute)),
	}
	if err := repo.InsertBulk(ctx, nil, tickets); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	var (
		got    []string
		cursor ExpiryCursor
	)
	for {
		page, err := repo.ListExpiredBooked(ctx, nil, cutoff, cursor, 2)
		if err != nil {
			t.Fatalf("ListExpiredBooked: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, tk := range page {
			got = append(got, tk.ID)
		}
		last := page[len(page)-1]
		cursor = ExpiryCursor{ExpiresAt: *last.ExpiresAt, ID: last.ID}
	}
	want := []string{"a", "b", "c"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expired = %v, want %v", got, want)
	}
}

func TestConfirmGroupCountsOnlyLiveHolds(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 2)
	repo := NewTicketRepo(db)
	ctx := context.Background()
	deadline := testutil.Epoch.Add(5 * time.Minute)

	if err := repo.InsertBulk(ctx, nil, []model.Ticket{
		newTicket("a", "g", ids[0], deadline),
		newTicket("b", "g", ids[1], deadline),
	}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	n, err := repo.ConfirmGroup(ctx, nil, "g", deadline.Add(time.Microsecond))
	if err != nil || n != 0 {
		t.Fatalf("confirm after deadline = %d, %v; want 0, nil", n, err)
	}
	n, err = repo.ConfirmGroup(ctx, nil, "g", deadline)
	if err != nil || n != 2 {
		t.Fatalf("confirm at deadline = %d, %v; want 2, nil", n, err)
	}
	tk, err := repo.GetByID(ctx, nil, "a")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if tk.Status != model.TicketConfirmed || tk.ExpiresAt != nil || tk.ConfirmedAt == nil {
		t.Fatalf("ticket = %+v; want confirmed with no expiry", tk)
	}
}

func TestCancelIfBookedOnce(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 1)
	repo := NewTicketRepo(db)
	ctx := context.Background()
	if err := repo.InsertBulk(ctx, nil, []model.Ticket{newTicket("a", "g", ids[0], testutil.Epoch)}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
	for i, want := range []bool{true, false} {
		ok, err := repo.CancelIfBooked(ctx, nil, "a", model.CancelReasonExpired, testutil.Epoch)
		if err != nil || ok != want {
			t.Fatalf("cancel #%d = %v, %v; want %v", i+1, ok, err, want)
		}
	}
	tk, _ := repo.GetByID(ctx, nil, "a")
	if tk.CancelReason != model.CancelReasonExpired || tk.CancelledAt == nil {
		t.Fatalf("ticket = %+v", tk)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 1)
	repo := NewTripSeatRepo(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := RunInTx(ctx, db, NoRetry, func(tx *sql.Tx) error {
		if _, err := repo.Transition(ctx, tx, ids[0], model.TripSeatAvailable, model.TripSeatBooked, nil, strptr("x"), testutil.Epoch); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	ts, _ := repo.GetByID(ctx, nil, ids[0])
	if ts.Status != model.TripSeatAvailable {
		t.Fatalf("status = %s, want available after rollback", ts.Status)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")
	err := Retry(context.Background(), RetryPolicy{Attempts: 5}, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("err = %v after %d calls; want permanent after 1", err, calls)
	}

	calls = 0
	err = Retry(context.Background(), RetryPolicy{Attempts: 3, Backoff: time.Microsecond}, func() error {
		calls++
		if calls < 3 {
			return &mysql.MySQLError{Number: mysqlErrDeadlock}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err = %v after %d calls; want nil after 3", err, calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("x"), false},
		{driver.ErrBadConn, true},
		{fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: mysqlErrLockWaitTimeout}), true},
		{&mysql.MySQLError{Number: mysqlErrDuplicateKey}, false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Errorf("IsTransient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestNullTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 1, 8, 5, 0, 123456000, time.UTC)
	for _, v := range []any{formatTime(want), []byte(formatTime(want)), want, want.Format(time.RFC3339Nano)} {
		var n nullTime
		if err := n.Scan(v); err != nil {
			t.Fatalf("Scan(%T): %v", v, err)
		}
		if !n.Valid || !n.Time.Equal(want) {
			t.Fatalf("Scan(%T) = %v, want %v", v, n.Time, want)
		}
	}
	var n nullTime
	if err := n.Scan(nil); err != nil || n.Valid || n.Ptr() != nil {
		t.Fatalf("Scan(nil) = %+v, %v", n, err)
	}
}

func TestIntegrityScan(t *testing.T) {
	db := testutil.OpenDB(t)
	ids := testutil.SeedTrip(t, db, 1, 1, 3)
	ctx := context.Background()
	seats := NewTripSeatRepo(db)
	tickets := NewTicketRepo(db)
	integ := NewIntegrityRepo(db)

	// A consistent hold.
	if err := tickets.InsertBulk(ctx, nil, []model.Ticket{newTicket("ok", "g", ids[0], testutil.Epoch)}); err != nil {
		t.Fatal(err)
	}
	if _, err := seats.Transition(ctx, nil, ids[0], model.TripSeatAvailable, model.TripSeatBooked, nil, strptr("ok"), testutil.Epoch); err != nil {
		t.Fatal(err)
	}
	issues, err := integ.Scan(ctx, nil, 1)
	if err != nil || len(issues) != 0 {
		t.Fatalf("Scan consistent = %v, %v", issues, err)
	}

	// A seat held by a ticket that does not exist.
	if _, err := seats.Transition(ctx, nil, ids[1], model.TripSeatAvailable, model.TripSeatBooked, nil, strptr("ghost"), testutil.Epoch); err != nil {
		t.Fatal(err)
	}
	issues, err = integ.Scan(ctx, nil, 1)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != model.IntegrityOrphanedSeat || issues[0].TripSeatID != ids[1] {
		t.Fatalf("issues = %+v; want one orphaned seat %d", issues, ids[1])
	}
}
