package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const tripSeatColumns = `id, trip_id, seat_id, seat_number, seat_class, status, ticket_id, version, updated_at`

// TripSeatRepo provides access to trip_seats, the per-trip reservable
// copies of vehicle seats.
type TripSeatRepo struct {
	db *sql.DB
}

// NewTripSeatRepo constructs a TripSeatRepo with the given DB handle.
func NewTripSeatRepo(db *sql.DB) *TripSeatRepo {
	return &TripSeatRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTripSeat(sc rowScanner) (model.TripSeat, error) {
	var (
		ts       model.TripSeat
		class    string
		status   string
		ticketID sql.NullString
		updated  nullTime
	)
	if err := sc.Scan(&ts.ID, &ts.TripID, &ts.SeatID, &ts.SeatNumber, &class, &status,
		&ticketID, &ts.Version, &updated); err != nil {
		return ts, err
	}
	ts.Class = model.SeatClass(class)
	ts.Status = model.TripSeatStatus(status)
	if ticketID.Valid {
		id := ticketID.String
		ts.TicketID = &id
	}
	ts.UpdatedAt = updated.Time
	return ts, nil
}

func collectTripSeats(rows *sql.Rows) ([]model.TripSeat, error) {
	defer rows.Close()
	var out []model.TripSeat
	for rows.Next() {
		ts, err := scanTripSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// CreateFromVehicle copies every seat template of vehicleID into
// trip_seats for tripID, all available.  It returns the number of rows
// created.  A trip that already has seats yields ErrConflict.
func (r *TripSeatRepo) CreateFromVehicle(ctx context.Context, q Querier, tripID, vehicleID uint64, now time.Time) (int64, error) {
	qq := querier(r.db, q)
	n, err := r.CountByTrip(ctx, qq, tripID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, ErrConflict
	}
	const stmt = `INSERT INTO trip_seats (trip_id, seat_id, seat_number, seat_class, status, version, updated_at)
	              SELECT ?, id, seat_number, seat_class, 'available', 0, ?
	              FROM seats WHERE vehicle_id = ? ORDER BY id`
	res, err := qq.ExecContext(ctx, stmt, tripID, formatTime(now), vehicleID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return res.RowsAffected()
}

// CountByTrip returns how many trip seats exist for a trip.
func (r *TripSeatRepo) CountByTrip(ctx context.Context, q Querier, tripID uint64) (int64, error) {
	var n int64
	err := querier(r.db, q).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trip_seats WHERE trip_id = ?`, tripID).Scan(&n)
	return n, err
}

// GetByID returns a single trip seat or ErrTripSeatNotFound.
func (r *TripSeatRepo) GetByID(ctx context.Context, q Querier, id uint64) (*model.TripSeat, error) {
	row := querier(r.db, q).QueryRowContext(ctx,
		`SELECT `+tripSeatColumns+` FROM trip_seats WHERE id = ?`, id)
	ts, err := scanTripSeat(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripSeatNotFound
		}
		return nil, err
	}
	return &ts, nil
}

// ListByIDs returns the trip seats with the given ids in ascending id
// order.  Missing ids are simply absent from the result.
func (r *TripSeatRepo) ListByIDs(ctx context.Context, q Querier, ids []uint64) ([]model.TripSeat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	stmt := `SELECT ` + tripSeatColumns + ` FROM trip_seats
	         WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)
	         ORDER BY id`
	rows, err := querier(r.db, q).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return collectTripSeats(rows)
}

// ListByTrip returns the seat map of a trip ordered by id.  When status
// is non-empty only seats in that status are returned.
func (r *TripSeatRepo) ListByTrip(ctx context.Context, q Querier, tripID uint64, status model.TripSeatStatus) ([]model.TripSeat, error) {
	stmt := `SELECT ` + tripSeatColumns + ` FROM trip_seats WHERE trip_id = ?`
	args := []any{tripID}
	if status != "" {
		stmt += ` AND status = ?`
		args = append(args, string(status))
	}
	stmt += ` ORDER BY id`
	rows, err := querier(r.db, q).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return collectTripSeats(rows)
}

// Transition is the single conditional write on trip_seats.  It moves
// seat id from status `from` to status `to` and sets ticket_id to
// setTicket (nil clears it).  When holder is non-nil the row must also
// currently be held by that ticket.  It reports whether the row matched;
// false means another writer got there first or the seat was never in
// the expected state.
func (r *TripSeatRepo) Transition(ctx context.Context, q Querier, id uint64, from, to model.TripSeatStatus, holder, setTicket *string, now time.Time) (bool, error) {
	stmt := `UPDATE trip_seats
	         SET status = ?, ticket_id = ?, version = version + 1, updated_at = ?
	         WHERE id = ? AND status = ?`
	args := []any{string(to), nullableString(setTicket), formatTime(now), id, string(from)}
	if holder != nil {
		stmt += ` AND ticket_id = ?`
		args = append(args, *holder)
	}
	res, err := querier(r.db, q).ExecContext(ctx, stmt, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
