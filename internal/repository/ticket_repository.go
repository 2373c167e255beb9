package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const ticketColumns = `id, trip_seat_id, trip_id, seat_number, booking_group_id, status, expires_at,
	trip_type, is_return_trip, linked_ticket_id, price_cents,
	customer_name, customer_phone, customer_email, booked_by, pickup_point, dropoff_point,
	booked_at, confirmed_at, cancelled_at, cancel_reason`

// TicketRepo provides access to tickets.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

func scanTicket(sc rowScanner) (model.Ticket, error) {
	var (
		t                        model.Ticket
		status, tripType, reason string
		linked                   sql.NullString
		expires, booked          nullTime
		confirmed, cancelled     nullTime
	)
	if err := sc.Scan(&t.ID, &t.TripSeatID, &t.TripID, &t.SeatNumber, &t.BookingGroupID, &status, &expires,
		&tripType, &t.IsReturnTrip, &linked, &t.PriceCents,
		&t.Customer.Name, &t.Customer.Phone, &t.Customer.Email, &t.BookedBy, &t.PickupPoint, &t.DropoffPoint,
		&booked, &confirmed, &cancelled, &reason); err != nil {
		return t, err
	}
	t.Status = model.TicketStatus(status)
	t.TripType = model.TripType(tripType)
	t.CancelReason = model.CancelReason(reason)
	t.ExpiresAt = expires.Ptr()
	if linked.Valid {
		id := linked.String
		t.LinkedTicketID = &id
	}
	t.BookedAt = booked.Time
	t.ConfirmedAt = confirmed.Ptr()
	t.CancelledAt = cancelled.Ptr()
	return t, nil
}

func collectTickets(rows *sql.Rows) ([]model.Ticket, error) {
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertBulk writes all tickets in one statement.  Ticket IDs are
// generated by the caller.
func (r *TicketRepo) InsertBulk(ctx context.Context, q Querier, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (` + ticketColumns + `) VALUES `
	args := make([]any, 0, len(tickets)*21)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			t.ID, t.TripSeatID, t.TripID, t.SeatNumber, t.BookingGroupID, string(t.Status), formatTimePtr(t.ExpiresAt),
			string(t.TripType), t.IsReturnTrip, nullableString(t.LinkedTicketID), t.PriceCents,
			t.Customer.Name, t.Customer.Phone, t.Customer.Email, t.BookedBy, t.PickupPoint, t.DropoffPoint,
			formatTime(t.BookedAt), formatTimePtr(t.ConfirmedAt), formatTimePtr(t.CancelledAt), string(t.CancelReason),
		)
	}
	_, err := querier(r.db, q).ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a ticket or ErrTicketNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, q Querier, id string) (*model.Ticket, error) {
	row := querier(r.db, q).QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByGroup returns the tickets of a booking group, outbound leg first
// and by trip seat id within a leg.  An unknown group yields an empty
// slice.
func (r *TicketRepo) ListByGroup(ctx context.Context, q Querier, groupID string) ([]model.Ticket, error) {
	rows, err := querier(r.db, q).QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE booking_group_id = ?
		 ORDER BY is_return_trip, trip_seat_id`, groupID)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// ExpiryCursor marks the last ticket returned by ListExpiredBooked.  The
// zero value starts from the beginning.
type ExpiryCursor struct {
	ExpiresAt time.Time
	ID        string
}

// ListExpiredBooked returns up to limit booked tickets whose hold ended
// strictly before cutoff, ordered by (expires_at, id) and starting after
// the cursor.  A ticket expiring exactly at cutoff is not returned.
func (r *TicketRepo) ListExpiredBooked(ctx context.Context, q Querier, cutoff time.Time, after ExpiryCursor, limit int) ([]model.Ticket, error) {
	stmt := `SELECT ` + ticketColumns + ` FROM tickets
	         WHERE status = 'booked' AND expires_at < ?`
	args := []any{formatTime(cutoff)}
	if after.ID != "" {
		ts := formatTime(after.ExpiresAt)
		stmt += ` AND (expires_at > ? OR (expires_at = ? AND id > ?))`
		args = append(args, ts, ts, after.ID)
	}
	stmt += ` ORDER BY expires_at, id LIMIT ?`
	args = append(args, limit)
	rows, err := querier(r.db, q).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// CancelIfBooked moves a ticket from booked to cancelled and clears its
// hold deadline.  It reports false when the ticket was no longer booked.
func (r *TicketRepo) CancelIfBooked(ctx context.Context, q Querier, id string, reason model.CancelReason, now time.Time) (bool, error) {
	res, err := querier(r.db, q).ExecContext(ctx,
		`UPDATE tickets
		 SET status = 'cancelled', expires_at = NULL, cancelled_at = ?, cancel_reason = ?
		 WHERE id = ? AND status = 'booked'`,
		formatTime(now), string(reason), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConfirmGroup moves every booked ticket of the group whose hold has not
// ended (expires_at >= now) to confirmed in one statement, and returns
// how many rows changed.  Callers compare the count against the group
// size and roll back when they differ.
func (r *TicketRepo) ConfirmGroup(ctx context.Context, q Querier, groupID string, now time.Time) (int64, error) {
	ts := formatTime(now)
	res, err := querier(r.db, q).ExecContext(ctx,
		`UPDATE tickets
		 SET status = 'confirmed', expires_at = NULL, confirmed_at = ?
		 WHERE booking_group_id = ? AND status = 'booked' AND expires_at >= ?`,
		ts, groupID, ts)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
