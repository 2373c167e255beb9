package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// IntegrityRepo runs read-only cross checks between trip_seats and
// tickets for one trip.
type IntegrityRepo struct {
	db *sql.DB
}

// NewIntegrityRepo constructs an IntegrityRepo with the given DB handle.
func NewIntegrityRepo(db *sql.DB) *IntegrityRepo {
	return &IntegrityRepo{db: db}
}

var integrityQueries = []struct {
	kind  model.IntegrityKind
	query string
}{
	{model.IntegrityOrphanedSeat, `
		SELECT ts.id, COALESCE(ts.ticket_id, '')
		FROM trip_seats ts
		LEFT JOIN tickets t ON t.id = ts.ticket_id
		WHERE ts.trip_id = ? AND ts.status = 'booked'
		  AND (t.id IS NULL OR t.status = 'cancelled' OR t.trip_seat_id <> ts.id)
		ORDER BY ts.id`},
	{model.IntegrityStrayHolder, `
		SELECT ts.id, ts.ticket_id
		FROM trip_seats ts
		WHERE ts.trip_id = ? AND ts.status <> 'booked' AND ts.ticket_id IS NOT NULL
		ORDER BY ts.id`},
	{model.IntegrityUnheldTicket, `
		SELECT t.trip_seat_id, t.id
		FROM tickets t
		LEFT JOIN trip_seats ts ON ts.id = t.trip_seat_id
		WHERE t.trip_id = ? AND t.status IN ('booked', 'confirmed')
		  AND (ts.id IS NULL OR ts.status <> 'booked' OR ts.ticket_id IS NULL OR ts.ticket_id <> t.id)
		ORDER BY t.trip_seat_id, t.id`},
	{model.IntegrityExpiryMismatch, `
		SELECT t.trip_seat_id, t.id
		FROM tickets t
		WHERE t.trip_id = ?
		  AND ((t.status = 'booked' AND t.expires_at IS NULL)
		    OR (t.status <> 'booked' AND t.expires_at IS NOT NULL))
		ORDER BY t.trip_seat_id, t.id`},
}

// Scan returns every inconsistency found for tripID.  A consistent trip
// yields an empty slice.
func (r *IntegrityRepo) Scan(ctx context.Context, q Querier, tripID uint64) ([]model.IntegrityIssue, error) {
	qq := querier(r.db, q)
	var out []model.IntegrityIssue
	for _, iq := range integrityQueries {
		rows, err := qq.QueryContext(ctx, iq.query, tripID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			issue := model.IntegrityIssue{Kind: iq.kind}
			if err := rows.Scan(&issue.TripSeatID, &issue.TicketID); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, issue)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
